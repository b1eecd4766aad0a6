// Package queue defines the domain events exchanged over the message broker
// together with the publisher and the audit consumer.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/court-reservation/internal/model"
)

// EventType doubles as the routing key on the topic exchange.
type EventType string

const (
	ReservationCreated   EventType = "reservation.created"
	ReservationUpdated   EventType = "reservation.updated"
	ReservationDeleted   EventType = "reservation.deleted"
	PaymentRecorded      EventType = "payment.recorded"
	PaymentStatusChanged EventType = "payment.status_changed"
	InstallmentAdded     EventType = "installment.added"
)

// Event is published after a reservation or payment write commits.  It
// carries enough of the resulting state for downstream consumers to log or
// notify without querying the primary database.
type Event struct {
	ID            string       `json:"id"`
	Type          EventType    `json:"type"`
	OccurredAt    time.Time    `json:"occurred_at"`
	ActorID       uint64       `json:"actor_id"`
	ReservationID uint64       `json:"reservation_id"`
	CourtID       uint64       `json:"court_id,omitempty"`
	ClientID      uint64       `json:"client_id,omitempty"`
	State         string       `json:"state,omitempty"`
	AmountPaid    model.Money  `json:"amount_paid"`
	AmountTotal   model.Money  `json:"amount_total"`
	PaymentID     uint64       `json:"payment_id,omitempty"`
	PaymentState  string       `json:"payment_state,omitempty"`
	Amount        *model.Money `json:"amount,omitempty"`
}

// ReservationEvent describes r after a write by actorID.
func ReservationEvent(t EventType, actorID uint64, r model.Reservation) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          t,
		OccurredAt:    time.Now().UTC(),
		ActorID:       actorID,
		ReservationID: r.ID,
		CourtID:       r.CourtID,
		ClientID:      r.ClientID,
		State:         string(r.State),
		AmountPaid:    r.AmountPaid,
		AmountTotal:   r.AmountTotal,
	}
}

// PaymentEvent describes p and its reservation after a ledger write.
func PaymentEvent(t EventType, actorID uint64, p model.Payment, r model.Reservation) Event {
	ev := ReservationEvent(t, actorID, r)
	amount := p.Amount
	ev.PaymentID = p.ID
	ev.PaymentState = string(p.State)
	ev.Amount = &amount
	return ev
}
