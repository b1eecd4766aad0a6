package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
)

// ReservationRepo provides CRUD operations for reservations.  Dates are
// stored as DATE, times as TIME and money as DECIMAL(8,2).  Overlap
// queries and row locks are only meaningful inside a transaction that
// also holds the court-day lock.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, court_id, client_id, handled_by, reservation_date, start_time, end_time,
                            amount_paid, amount_total, state, cancellation_reason, created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (model.Reservation, error) {
	var (
		r         model.Reservation
		handledBy sql.NullInt64
		reason    sql.NullString
	)
	err := row.Scan(&r.ID, &r.CourtID, &r.ClientID, &handledBy, &r.Date, &r.StartTime, &r.EndTime,
		&r.AmountPaid, &r.AmountTotal, &r.State, &reason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.HandledBy = uintPtr(handledBy)
	r.CancellationReason = stringPtr(reason)
	return r, nil
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetByID returns the reservation with the given id or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	return res, mapError(err)
}

// GetByIDTx reads a reservation inside tx without locking it.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	res, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	return res, mapError(err)
}

// GetByIDForUpdateTx reads a reservation inside tx and locks its row until
// the transaction ends.  Concurrent installments and confirmations on the
// same reservation queue up behind the lock.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	res, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	return res, mapError(err)
}

// FindOverlappingTx returns the active reservations on q's court and date
// whose range intersects [q.Start, q.End).  A candidate overlaps unless it
// ends at or before the start or starts at or after the end.
func (r *ReservationRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, q model.OverlapQuery) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE court_id = ? AND reservation_date = ?
                AND state IN (?, ?, ?)
                AND NOT (end_time <= ? OR start_time >= ?)`
	args := []interface{}{q.CourtID, q.Date,
		model.StatePendingApproval, model.StateApproved, model.StateFullyPaid,
		q.Start, q.End}
	if q.ExcludeID != 0 {
		query += ` AND id <> ?`
		args = append(args, q.ExcludeID)
	}
	// A locking read sees rows committed after the transaction's snapshot,
	// which a plain SELECT under REPEATABLE READ would miss.
	query += ` ORDER BY start_time FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// CreateTx inserts res and populates its generated ID.  A missing court or
// client surfaces as ErrNotFound through the foreign keys.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (court_id, client_id, handled_by, reservation_date, start_time, end_time,
                                         amount_paid, amount_total, state, cancellation_reason, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.CourtID, res.ClientID, nullUint(res.HandledBy), res.Date, res.StartTime, res.EndTime,
		res.AmountPaid, res.AmountTotal, res.State, nullString(res.CancellationReason), res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// UpdateTx writes every mutable column of res.  created_at is never touched.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `UPDATE reservations
               SET court_id = ?, client_id = ?, handled_by = ?, reservation_date = ?, start_time = ?, end_time = ?,
                   amount_paid = ?, amount_total = ?, state = ?, cancellation_reason = ?, updated_at = ?
               WHERE id = ?`
	return affected(tx.ExecContext(ctx, q, res.CourtID, res.ClientID, nullUint(res.HandledBy), res.Date, res.StartTime, res.EndTime,
		res.AmountPaid, res.AmountTotal, res.State, nullString(res.CancellationReason), res.UpdatedAt, res.ID))
}

// DeleteTx removes a reservation and its payments.  The payments foreign
// key cascades as well; deleting them first keeps the rule explicit.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	return affected(tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id))
}

// List returns the reservations visible in scope for one list view.
func (r *ReservationRepo) List(ctx context.Context, scope policy.Scope, f model.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []interface{}
	)
	if !scope.Unrestricted() {
		where = append(where, "client_id = ?")
		args = append(args, scope.ClientID)
	}
	if f.CourtID != 0 {
		where = append(where, "court_id = ?")
		args = append(args, f.CourtID)
	}
	if !f.Date.IsZero() {
		where = append(where, "reservation_date = ?")
		args = append(args, f.Date)
	}
	if f.Kind == model.ListWithBalance {
		where = append(where, "state = ?", "amount_paid < amount_total")
		args = append(args, model.StateApproved)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Kind == model.ListAll || f.Kind == "" {
		query += ` ORDER BY created_at DESC, id DESC`
	} else {
		query += ` ORDER BY reservation_date DESC, start_time DESC, id DESC`
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}
