package model

import "time"

// PaymentState is the verification status of a payment.
type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentConfirmed PaymentState = "CONFIRMED"
	PaymentRejected  PaymentState = "REJECTED"
	PaymentRefunded  PaymentState = "REFUNDED"
)

// Valid reports whether s is a known payment state.
func (s PaymentState) Valid() bool {
	switch s {
	case PaymentPending, PaymentConfirmed, PaymentRejected, PaymentRefunded:
		return true
	}
	return false
}

// paymentTransitions lists, per state, the states a verifier may move a
// payment to.
var paymentTransitions = map[PaymentState][]PaymentState{
	PaymentPending:   {PaymentConfirmed, PaymentRejected},
	PaymentConfirmed: {PaymentRefunded},
}

// CanTransition reports whether a payment may move from one state to another.
func (s PaymentState) CanTransition(to PaymentState) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment methods used when the caller does not name one.
const (
	MethodMobileTransfer = "YAPE"
	MethodCash           = "CASH"
)

// InitialDepositNote is attached to the payment created with a reservation.
const InitialDepositNote = "initial deposit"

// Payment is one entry in a reservation's ledger.  It corresponds to a row
// in the `payments` table.  Rows are never rewritten except for their
// verification fields.
//
// Fields:
//
//	ID            – primary key identifier.
//	ReservationID – reservation the money is for.
//	Amount        – positive amount.
//	Method        – free-form tag (CASH, YAPE, ...).
//	ProofImage    – opaque attachment reference (nullable).
//	State         – verification status.
//	Credited      – true when the amount was added to the reservation at
//	                submission time (initial deposit, installments), so that
//	                confirmation must not add it a second time.
//	VerifiedBy    – worker/admin who changed the state (nullable).
//	Note          – optional free text.
//	CreatedAt     – creation timestamp (immutable).
type Payment struct {
	ID            uint64       `json:"id"`                    // payments.id
	ReservationID uint64       `json:"reservation_id"`        // payments.reservation_id
	Amount        Money        `json:"amount"`                // payments.amount
	Method        string       `json:"method"`                // payments.method
	ProofImage    *string      `json:"proof_image,omitempty"` // payments.proof_image (nullable)
	State         PaymentState `json:"state"`                 // payments.state
	Credited      bool         `json:"credited"`              // payments.credited
	VerifiedBy    *uint64      `json:"verified_by,omitempty"` // payments.verified_by (nullable)
	Note          *string      `json:"note,omitempty"`        // payments.note (nullable)
	CreatedAt     time.Time    `json:"created_at"`            // payments.created_at
}
