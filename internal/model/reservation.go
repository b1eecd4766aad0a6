package model

import "time"

// ReservationState is the lifecycle position of a reservation.
type ReservationState string

const (
	StatePendingApproval ReservationState = "PENDING_APPROVAL"
	StateApproved        ReservationState = "APPROVED"
	StateFullyPaid       ReservationState = "FULLY_PAID"
	StateCancelled       ReservationState = "CANCELLED"
)

// ActiveStates are the states that occupy a court slot.
var ActiveStates = []ReservationState{StatePendingApproval, StateApproved, StateFullyPaid}

// Valid reports whether s is one of the four known states.
func (s ReservationState) Valid() bool {
	switch s {
	case StatePendingApproval, StateApproved, StateFullyPaid, StateCancelled:
		return true
	}
	return false
}

// Active reports whether a reservation in this state blocks its time range.
func (s ReservationState) Active() bool { return s.Valid() && s != StateCancelled }

// Terminal reports whether the lifecycle engine refuses to move out of s.
// Staff raw edits bypass this check.
func (s ReservationState) Terminal() bool { return s == StateCancelled || s == StateFullyPaid }

// MinimumDeposit is the smallest initial payment a client without a
// deposit waiver may book with.
const MinimumDeposit Money = 10 * 100

// Reservation records a client's booking of a court for a time range on a
// given day.  It corresponds to a row in the `reservations` table.
//
// Fields:
//
//	ID                 – primary key identifier.
//	CourtID            – booked court.
//	ClientID           – client the reservation belongs to.
//	HandledBy          – worker/admin who booked on the client's behalf (nil for self-bookings).
//	Date               – day of play.
//	StartTime, EndTime – half-open range [start, end) on Date.
//	AmountPaid         – money credited so far.
//	AmountTotal        – price fixed at creation.
//	State              – lifecycle state.
//	CancellationReason – set only while State is CANCELLED.
//	CreatedAt          – creation timestamp (immutable).
//	UpdatedAt          – last update timestamp.
type Reservation struct {
	ID                 uint64           `json:"id"`                            // reservations.id
	CourtID            uint64           `json:"court_id"`                      // reservations.court_id
	ClientID           uint64           `json:"client_id"`                     // reservations.client_id
	HandledBy          *uint64          `json:"handled_by,omitempty"`          // reservations.handled_by (nullable)
	Date               Date             `json:"date"`                          // reservations.reservation_date
	StartTime          Clock            `json:"start_time"`                    // reservations.start_time
	EndTime            Clock            `json:"end_time"`                      // reservations.end_time
	AmountPaid         Money            `json:"amount_paid"`                   // reservations.amount_paid
	AmountTotal        Money            `json:"amount_total"`                  // reservations.amount_total
	State              ReservationState `json:"state"`                         // reservations.state
	CancellationReason *string          `json:"cancellation_reason,omitempty"` // reservations.cancellation_reason (nullable)
	CreatedAt          time.Time        `json:"created_at"`                    // reservations.created_at
	UpdatedAt          time.Time        `json:"updated_at"`                    // reservations.updated_at
}

// Balance is what remains to be paid, never negative.
func (r *Reservation) Balance() Money {
	if r.AmountPaid >= r.AmountTotal {
		return 0
	}
	return r.AmountTotal - r.AmountPaid
}

// Overlaps reports whether two half-open ranges on the same day intersect.
// Ranges that merely touch (one ends when the other starts) do not.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return !(bEnd <= aStart || bStart >= aEnd)
}

// DerivePaidState computes the state implied by the money on a
// reservation: FULLY_PAID once the total is covered, APPROVED once
// anything has been paid.  With nothing paid the current state is kept.
func DerivePaidState(current ReservationState, paid, total Money) ReservationState {
	switch {
	case paid >= total:
		return StateFullyPaid
	case paid > 0:
		return StateApproved
	}
	return current
}

// Credit adds a confirmed amount to the reservation and promotes it to
// FULLY_PAID once the total is reached.  It never demotes.
func (r *Reservation) Credit(amount Money) {
	r.AmountPaid += amount
	if r.AmountPaid >= r.AmountTotal {
		r.State = StateFullyPaid
	}
}

// Cancel moves the reservation to CANCELLED with an optional reason.  The
// paid amount is left untouched.
func (r *Reservation) Cancel(reason *string) {
	r.State = StateCancelled
	r.CancellationReason = reason
}
