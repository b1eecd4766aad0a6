package repository

import (
	"context"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
)

// Tx is the set of operations available inside a storage transaction.
// Every reservation write and every payment state change runs through one
// Tx so that the overlap check, the price and the row writes are consistent
// as of a single snapshot.
type Tx interface {
	// LockCourtDay serializes writers on one (court, date) partition until
	// the transaction ends.
	LockCourtDay(ctx context.Context, courtID uint64, day model.Date) error
	// FindOverlapping returns active reservations matching q.
	FindOverlapping(ctx context.Context, q model.OverlapQuery) ([]model.Reservation, error)

	CourtByID(ctx context.Context, id uint64) (model.Court, error)
	CreateCourt(ctx context.Context, c *model.Court) error
	UpdateCourt(ctx context.Context, c *model.Court) error
	DeleteCourt(ctx context.Context, id uint64) error
	CourtReferenced(ctx context.Context, id uint64) (bool, error)

	ActorByID(ctx context.Context, id uint64) (model.Actor, error)
	ActorByUsername(ctx context.Context, username string) (model.Actor, error)

	CreateReservation(ctx context.Context, r *model.Reservation) error
	// ReservationByID reads a reservation without locking it.
	ReservationByID(ctx context.Context, id uint64) (model.Reservation, error)
	// ReservationByIDForUpdate reads a reservation and holds its row lock.
	// Writers that also need court-day locks take those first.
	ReservationByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	// DeleteReservation removes the reservation together with its payments.
	DeleteReservation(ctx context.Context, id uint64) error

	CreatePayment(ctx context.Context, p *model.Payment) error
	PaymentByIDForUpdate(ctx context.Context, id uint64) (model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error
}

// Store is the durable storage collaborator.  Reads outside a transaction
// take an explicit visibility scope built once from the actor.
type Store interface {
	// InTx runs fn inside one transaction.  The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	CourtByID(ctx context.Context, id uint64) (model.Court, error)
	ListCourts(ctx context.Context, onlyAvailable bool) ([]model.Court, error)

	ActorByID(ctx context.Context, id uint64) (model.Actor, error)

	ReservationByID(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservations(ctx context.Context, scope policy.Scope, f model.ReservationFilter) ([]model.Reservation, error)

	PaymentByID(ctx context.Context, id uint64) (model.Payment, error)
	ListPayments(ctx context.Context, scope policy.Scope, f model.PaymentFilter) ([]model.Payment, error)
}
