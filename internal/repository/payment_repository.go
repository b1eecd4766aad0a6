package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
)

// PaymentRepo provides access to the payments ledger.  Rows are inserted
// once; only the verification columns are updated afterwards.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `p.id, p.reservation_id, p.amount, p.method, p.proof_image, p.state, p.credited, p.verified_by, p.note, p.created_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (model.Payment, error) {
	var (
		p          model.Payment
		proof      sql.NullString
		verifiedBy sql.NullInt64
		note       sql.NullString
	)
	err := row.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Method, &proof, &p.State, &p.Credited, &verifiedBy, &note, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.ProofImage = stringPtr(proof)
	p.VerifiedBy = uintPtr(verifiedBy)
	p.Note = stringPtr(note)
	return p, nil
}

// GetByID returns the payment with the given id or ErrNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = ?`, id))
	return p, mapError(err)
}

// GetByIDForUpdateTx reads and locks a payment row inside tx.
func (r *PaymentRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = ? FOR UPDATE`, id))
	return p, mapError(err)
}

// CreateTx appends p to the ledger and populates its generated ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, amount, method, proof_image, state, credited, verified_by, note, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.ReservationID, p.Amount, p.Method, nullString(p.ProofImage), p.State, p.Credited,
		nullUint(p.VerifiedBy), nullString(p.Note), p.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// UpdateTx writes the verification columns of p.
func (r *PaymentRepo) UpdateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `UPDATE payments SET state = ?, credited = ?, verified_by = ?, note = ? WHERE id = ?`
	return affected(tx.ExecContext(ctx, q, p.State, p.Credited, nullUint(p.VerifiedBy), nullString(p.Note), p.ID))
}

// List returns the payments visible in scope, newest first.  The scope is
// applied through the owning reservation's client.
func (r *PaymentRepo) List(ctx context.Context, scope policy.Scope, f model.PaymentFilter) ([]model.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	if !scope.Unrestricted() {
		where = append(where, "r.client_id = ?")
		args = append(args, scope.ClientID)
	}
	if f.ReservationID != 0 {
		where = append(where, "p.reservation_id = ?")
		args = append(args, f.ReservationID)
	}
	if f.State != "" {
		where = append(where, "p.state = ?")
		args = append(args, f.State)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments p JOIN reservations r ON r.id = p.reservation_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
