package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/court-reservation/internal/model"
)

// CourtRepo provides CRUD operations for the court catalog.  Rates are
// stored as DECIMAL(8,2) and scanned into model.Money.
type CourtRepo struct {
	db *sql.DB
}

// NewCourtRepo returns a new CourtRepo bound to the given database.
func NewCourtRepo(db *sql.DB) *CourtRepo { return &CourtRepo{db: db} }

const courtColumns = `id, name, sport, quality, day_rate, night_rate, available, created_at, updated_at`

func scanCourt(row interface{ Scan(...interface{}) error }) (model.Court, error) {
	var c model.Court
	err := row.Scan(&c.ID, &c.Name, &c.Sport, &c.Quality, &c.DayRate, &c.NightRate, &c.Available, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CourtRepo) getByID(ctx context.Context, q queryer, id uint64) (model.Court, error) {
	c, err := scanCourt(q.QueryRowContext(ctx, `SELECT `+courtColumns+` FROM courts WHERE id = ?`, id))
	return c, mapError(err)
}

// GetByID returns the court with the given id or ErrNotFound.
func (r *CourtRepo) GetByID(ctx context.Context, id uint64) (model.Court, error) {
	return r.getByID(ctx, r.db, id)
}

// GetByIDTx reads a court inside tx.  The row is not locked: bookings are
// serialized by the court-day lock, and a reservation keeps the price read
// here even if the rates change before commit.
func (r *CourtRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Court, error) {
	return r.getByID(ctx, tx, id)
}

// List returns courts ordered by id, optionally only the available ones.
func (r *CourtRepo) List(ctx context.Context, onlyAvailable bool) ([]model.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts`
	if onlyAvailable {
		query += ` WHERE available = TRUE`
	}
	query += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateTx inserts c and populates its generated ID.
func (r *CourtRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Court) error {
	const q = `INSERT INTO courts (name, sport, quality, day_rate, night_rate, available, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, c.Name, c.Sport, c.Quality, c.DayRate, c.NightRate, c.Available, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// UpdateTx writes every mutable column of c.
func (r *CourtRepo) UpdateTx(ctx context.Context, tx *sql.Tx, c *model.Court) error {
	const q = `UPDATE courts SET name = ?, sport = ?, quality = ?, day_rate = ?, night_rate = ?, available = ?, updated_at = ?
               WHERE id = ?`
	return affected(tx.ExecContext(ctx, q, c.Name, c.Sport, c.Quality, c.DayRate, c.NightRate, c.Available, c.UpdatedAt, c.ID))
}

// DeleteTx removes a court.  The reservations foreign key makes MySQL
// refuse the delete when the court is referenced, reported as ErrReferenced.
func (r *CourtRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return affected(tx.ExecContext(ctx, `DELETE FROM courts WHERE id = ?`, id))
}

// ReferencedTx reports whether any reservation points at the court.
func (r *CourtRepo) ReferencedTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE court_id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
