package booking

import (
	"context"
	"strings"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// PaymentInput is a payment submitted against a reservation.
type PaymentInput struct {
	ReservationID uint64
	Amount        model.Money
	Method        string
	Note          *string
	ProofImage    *string
}

// LedgerResult is the outcome of a ledger write: the payment and the
// reservation as persisted in the same transaction.
type LedgerResult struct {
	Payment     model.Payment     `json:"payment"`
	Reservation model.Reservation `json:"reservation"`
}

func (in PaymentInput) validate() error {
	if in.ReservationID == 0 {
		return apperror.Validation("reservation_id", "reservation_id is required")
	}
	if in.Amount <= 0 {
		return apperror.Validation("amount", "amount must be greater than zero")
	}
	if !in.Amount.InRange() {
		return apperror.Validation("amount", model.ErrMoneyRange.Error())
	}
	return nil
}

func methodOrDefault(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return model.MethodMobileTransfer
	}
	return m
}

// lockPayable loads and locks the reservation a payment is for, checking
// ownership and that the amount fits in the remaining balance.
func lockPayable(ctx context.Context, tx repository.Tx, actor model.Actor, action policy.Action, id uint64, amount model.Money) (model.Reservation, error) {
	r, err := tx.ReservationByIDForUpdate(ctx, id)
	if err != nil {
		return r, notFound(err, "reservation_id", "reservation not found")
	}
	if err := authorizeObject(actor, action, r.ClientID, "reservation belongs to another client"); err != nil {
		return r, err
	}
	if r.State == model.StateCancelled {
		return r, apperror.Conflict("reservation_id", "reservation is cancelled")
	}
	if amount > r.Balance() {
		return r, apperror.Conflict("amount", "payment exceeds remaining balance "+r.Balance().String())
	}
	return r, nil
}

// RecordPayment appends a PENDING payment.  The reservation is not touched
// until a verifier confirms it.
func (s *Service) RecordPayment(ctx context.Context, actor model.Actor, in PaymentInput) (LedgerResult, error) {
	if err := authorize(actor, policy.ActionRecordPayment, "not allowed to record payments"); err != nil {
		return LedgerResult{}, err
	}
	if err := in.validate(); err != nil {
		return LedgerResult{}, err
	}
	var out LedgerResult
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := lockPayable(ctx, tx, actor, policy.ActionRecordPayment, in.ReservationID, in.Amount)
		if err != nil {
			return err
		}
		p := model.Payment{
			ReservationID: r.ID,
			Amount:        in.Amount,
			Method:        methodOrDefault(in.Method),
			ProofImage:    in.ProofImage,
			State:         model.PaymentPending,
			Note:          trimmed(in.Note),
			CreatedAt:     s.now().UTC(),
		}
		if err := tx.CreatePayment(ctx, &p); err != nil {
			return err
		}
		out = LedgerResult{Payment: p, Reservation: r}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}
	s.log.InfoContext(ctx, "payment recorded", "payment_id", out.Payment.ID, "reservation_id", out.Reservation.ID, "amount", out.Payment.Amount.String())
	s.emit(ctx, queue.PaymentEvent(queue.PaymentRecorded, actor.ID, out.Payment, out.Reservation))
	return out, nil
}

// AddInstallment records an abono.  The amount is credited to the
// reservation at submission: amount_paid grows immediately and the state
// becomes FULLY_PAID once the total is covered, APPROVED otherwise.  The
// payment itself stays PENDING for verification and is marked as credited
// so that confirming it later does not count it twice.
func (s *Service) AddInstallment(ctx context.Context, actor model.Actor, in PaymentInput) (LedgerResult, error) {
	if err := authorize(actor, policy.ActionAddInstallment, "not allowed to add installments"); err != nil {
		return LedgerResult{}, err
	}
	if err := in.validate(); err != nil {
		return LedgerResult{}, err
	}
	var out LedgerResult
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := lockPayable(ctx, tx, actor, policy.ActionAddInstallment, in.ReservationID, in.Amount)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		p := model.Payment{
			ReservationID: r.ID,
			Amount:        in.Amount,
			Method:        methodOrDefault(in.Method),
			ProofImage:    in.ProofImage,
			State:         model.PaymentPending,
			Credited:      true,
			Note:          trimmed(in.Note),
			CreatedAt:     now,
		}
		if err := tx.CreatePayment(ctx, &p); err != nil {
			return err
		}
		r.AmountPaid += in.Amount
		if r.AmountPaid >= r.AmountTotal {
			r.State = model.StateFullyPaid
		} else {
			r.State = model.StateApproved
		}
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, &r); err != nil {
			return err
		}
		out = LedgerResult{Payment: p, Reservation: r}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}
	s.log.InfoContext(ctx, "installment added",
		"payment_id", out.Payment.ID, "reservation_id", out.Reservation.ID,
		"amount_paid", out.Reservation.AmountPaid.String(), "state", out.Reservation.State)
	s.emit(ctx, queue.PaymentEvent(queue.InstallmentAdded, actor.ID, out.Payment, out.Reservation))
	return out, nil
}

// ConfirmPayment moves a PENDING payment to CONFIRMED.
func (s *Service) ConfirmPayment(ctx context.Context, actor model.Actor, id uint64) (LedgerResult, error) {
	return s.SetPaymentState(ctx, actor, id, model.PaymentConfirmed, nil)
}

// SetPaymentState applies a verification transition.  Confirming a payment
// that was not credited at submission adds its amount to the reservation
// and promotes it to FULLY_PAID once the total is reached, atomically with
// the payment write.  The balance was checked when the payment was
// recorded and is not checked again here.  REJECTED and REFUNDED leave
// amount_paid untouched.
func (s *Service) SetPaymentState(ctx context.Context, actor model.Actor, id uint64, to model.PaymentState, note *string) (LedgerResult, error) {
	if err := authorize(actor, policy.ActionVerifyPayment, "only workers and administrators verify payments"); err != nil {
		return LedgerResult{}, err
	}
	if !to.Valid() {
		return LedgerResult{}, apperror.Validation("state", "unknown payment state")
	}
	var out LedgerResult
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		p, err := tx.PaymentByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "id", "payment not found")
		}
		if !p.State.CanTransition(to) {
			return apperror.Conflict("state", "payment cannot move from "+string(p.State)+" to "+string(to))
		}
		r, err := tx.ReservationByIDForUpdate(ctx, p.ReservationID)
		if err != nil {
			return notFound(err, "reservation_id", "reservation not found")
		}
		if to == model.PaymentConfirmed && !p.Credited {
			if r.State == model.StateCancelled {
				return apperror.Conflict("reservation_id", "reservation is cancelled")
			}
			r.Credit(p.Amount)
			r.UpdatedAt = s.now().UTC()
			if err := tx.UpdateReservation(ctx, &r); err != nil {
				return err
			}
			p.Credited = true
		}
		verifier := actor.ID
		p.State = to
		p.VerifiedBy = &verifier
		if n := trimmed(note); n != nil {
			p.Note = n
		}
		if err := tx.UpdatePayment(ctx, &p); err != nil {
			return err
		}
		out = LedgerResult{Payment: p, Reservation: r}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}
	s.log.InfoContext(ctx, "payment state changed",
		"payment_id", out.Payment.ID, "state", out.Payment.State, "reservation_id", out.Reservation.ID,
		"amount_paid", out.Reservation.AmountPaid.String(), "verified_by", actor.ID)
	s.emit(ctx, queue.PaymentEvent(queue.PaymentStatusChanged, actor.ID, out.Payment, out.Reservation))
	return out, nil
}

// GetPayment returns one payment visible to actor.
func (s *Service) GetPayment(ctx context.Context, actor model.Actor, id uint64) (model.Payment, error) {
	if err := authorize(actor, policy.ActionViewPayment, "not allowed to view payments"); err != nil {
		return model.Payment{}, err
	}
	p, err := s.store.PaymentByID(ctx, id)
	if err != nil {
		return model.Payment{}, notFound(err, "id", "payment not found")
	}
	r, err := s.store.ReservationByID(ctx, p.ReservationID)
	if err != nil {
		return model.Payment{}, notFound(err, "reservation_id", "reservation not found")
	}
	if err := authorizeObject(actor, policy.ActionViewPayment, r.ClientID, "payment belongs to another client"); err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

// ListPayments returns payments in the "mine" or "all" view, scoped to what
// actor may see.
func (s *Service) ListPayments(ctx context.Context, actor model.Actor, kind model.ReservationListKind, f model.PaymentFilter) ([]model.Payment, error) {
	if err := authorize(actor, policy.ActionListPayments, "not allowed to list payments"); err != nil {
		return nil, err
	}
	if f.State != "" && !f.State.Valid() {
		return nil, apperror.Validation("state", "unknown payment state")
	}
	scope := policy.ScopeFor(actor)
	switch kind {
	case "", model.ListAll:
	case model.ListMine:
		scope = policy.Scope{ClientID: actor.ID}
	default:
		return nil, apperror.Validation("filter", "filter must be one of all, mine")
	}
	return s.store.ListPayments(ctx, scope, f)
}
