package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/court-reservation/internal/model"
)

// ActorRepo reads accounts from the actors table.  Accounts are created by
// the identity service; this repository never writes them.
type ActorRepo struct {
	db *sql.DB
}

// NewActorRepo returns a new ActorRepo bound to the given database.
func NewActorRepo(db *sql.DB) *ActorRepo { return &ActorRepo{db: db} }

const actorColumns = `id, username, role, can_reserve_without_deposit, created_at`

func (r *ActorRepo) get(ctx context.Context, q queryer, where string, arg interface{}) (model.Actor, error) {
	var a model.Actor
	err := q.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE `+where, arg).
		Scan(&a.ID, &a.Username, &a.Role, &a.CanReserveWithoutDeposit, &a.CreatedAt)
	return a, mapError(err)
}

// GetByID returns the actor with the given id or ErrNotFound.
func (r *ActorRepo) GetByID(ctx context.Context, id uint64) (model.Actor, error) {
	return r.get(ctx, r.db, "id = ?", id)
}

// GetByIDTx is GetByID inside tx.
func (r *ActorRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Actor, error) {
	return r.get(ctx, tx, "id = ?", id)
}

// GetByUsernameTx looks an actor up by its unique username inside tx.
func (r *ActorRepo) GetByUsernameTx(ctx context.Context, tx *sql.Tx, username string) (model.Actor, error) {
	return r.get(ctx, tx, "username = ?", username)
}
