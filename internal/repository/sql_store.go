package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
)

// SQLStore implements Store on MySQL.  It composes the per-table
// repositories and hands them a *sql.Tx inside InTx.
type SQLStore struct {
	db           *sql.DB
	Courts       *CourtRepo
	Actors       *ActorRepo
	Reservations *ReservationRepo
	Payments     *PaymentRepo
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wires the repositories on db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:           db,
		Courts:       NewCourtRepo(db),
		Actors:       NewActorRepo(db),
		Reservations: NewReservationRepo(db),
		Payments:     NewPaymentRepo(db),
	}
}

// InTx begins a transaction, runs fn and commits when fn succeeds.  The
// deferred rollback is a no-op after a successful commit.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *SQLStore) CourtByID(ctx context.Context, id uint64) (model.Court, error) {
	return s.Courts.GetByID(ctx, id)
}

func (s *SQLStore) ListCourts(ctx context.Context, onlyAvailable bool) ([]model.Court, error) {
	return s.Courts.List(ctx, onlyAvailable)
}

func (s *SQLStore) ActorByID(ctx context.Context, id uint64) (model.Actor, error) {
	return s.Actors.GetByID(ctx, id)
}

func (s *SQLStore) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.Reservations.GetByID(ctx, id)
}

func (s *SQLStore) ListReservations(ctx context.Context, scope policy.Scope, f model.ReservationFilter) ([]model.Reservation, error) {
	return s.Reservations.List(ctx, scope, f)
}

func (s *SQLStore) PaymentByID(ctx context.Context, id uint64) (model.Payment, error) {
	return s.Payments.GetByID(ctx, id)
}

func (s *SQLStore) ListPayments(ctx context.Context, scope policy.Scope, f model.PaymentFilter) ([]model.Payment, error) {
	return s.Payments.List(ctx, scope, f)
}

// sqlTx adapts the repositories' ...Tx methods to the Tx interface.
type sqlTx struct {
	s  *SQLStore
	tx *sql.Tx
}

// LockCourtDay takes an exclusive row lock on the (court, date) partition.
// The row is inserted on first use; INSERT IGNORE followed by SELECT ...
// FOR UPDATE makes two writers on the same day wait for each other even
// when neither reservation exists yet.
func (t *sqlTx) LockCourtDay(ctx context.Context, courtID uint64, day model.Date) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT IGNORE INTO court_day_locks (court_id, lock_date) VALUES (?, ?)`, courtID, day); err != nil {
		return mapError(err)
	}
	var id uint64
	err := t.tx.QueryRowContext(ctx,
		`SELECT court_id FROM court_day_locks WHERE court_id = ? AND lock_date = ? FOR UPDATE`, courtID, day).Scan(&id)
	return mapError(err)
}

func (t *sqlTx) FindOverlapping(ctx context.Context, q model.OverlapQuery) ([]model.Reservation, error) {
	return t.s.Reservations.FindOverlappingTx(ctx, t.tx, q)
}

func (t *sqlTx) CourtByID(ctx context.Context, id uint64) (model.Court, error) {
	return t.s.Courts.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) CreateCourt(ctx context.Context, c *model.Court) error {
	return t.s.Courts.CreateTx(ctx, t.tx, c)
}

func (t *sqlTx) UpdateCourt(ctx context.Context, c *model.Court) error {
	return t.s.Courts.UpdateTx(ctx, t.tx, c)
}

func (t *sqlTx) DeleteCourt(ctx context.Context, id uint64) error {
	return t.s.Courts.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) CourtReferenced(ctx context.Context, id uint64) (bool, error) {
	return t.s.Courts.ReferencedTx(ctx, t.tx, id)
}

func (t *sqlTx) ActorByID(ctx context.Context, id uint64) (model.Actor, error) {
	return t.s.Actors.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) ActorByUsername(ctx context.Context, username string) (model.Actor, error) {
	return t.s.Actors.GetByUsernameTx(ctx, t.tx, username)
}

func (t *sqlTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return t.s.Reservations.CreateTx(ctx, t.tx, r)
}

func (t *sqlTx) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return t.s.Reservations.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) ReservationByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	return t.s.Reservations.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	return t.s.Reservations.UpdateTx(ctx, t.tx, r)
}

func (t *sqlTx) DeleteReservation(ctx context.Context, id uint64) error {
	return t.s.Reservations.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) CreatePayment(ctx context.Context, p *model.Payment) error {
	return t.s.Payments.CreateTx(ctx, t.tx, p)
}

func (t *sqlTx) PaymentByIDForUpdate(ctx context.Context, id uint64) (model.Payment, error) {
	return t.s.Payments.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdatePayment(ctx context.Context, p *model.Payment) error {
	return t.s.Payments.UpdateTx(ctx, t.tx, p)
}
