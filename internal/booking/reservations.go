package booking

import (
	"context"
	"strings"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/catalog"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// CreateInput is a booking request.  ClientID or ClientUsername name the
// client when staff book on someone else's behalf; clients leave both
// empty or point them at themselves.
type CreateInput struct {
	CourtID        uint64
	Date           model.Date
	Start          model.Clock
	End            model.Clock
	Deposit        model.Money
	ClientID       uint64
	ClientUsername string
}

// Patch lists the reservation fields an editor wants to change.  Nil means
// keep.  A HandledBy of zero clears the field.
type Patch struct {
	CourtID            *uint64
	Date               *model.Date
	Start              *model.Clock
	End                *model.Clock
	State              *model.ReservationState
	CancellationReason *string
	AmountPaid         *model.Money
	AmountTotal        *model.Money
	ClientID           *uint64
	HandledBy          *uint64
}

func (p Patch) reschedules() bool {
	return p.CourtID != nil || p.Date != nil || p.Start != nil || p.End != nil
}

// Create validates, prices and stores a reservation.  A positive deposit
// is recorded as the initial payment, already credited to amount_paid.
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateInput) (model.Reservation, error) {
	if err := authorize(actor, policy.ActionCreateReservation, "not allowed to create reservations"); err != nil {
		return model.Reservation{}, err
	}
	if err := validateSlot(in.CourtID, in.Date, in.Start, in.End); err != nil {
		return model.Reservation{}, err
	}
	if in.Deposit < 0 {
		return model.Reservation{}, apperror.Validation("amount_paid", "deposit must not be negative")
	}
	if !in.Deposit.InRange() {
		return model.Reservation{}, apperror.Validation("amount_paid", model.ErrMoneyRange.Error())
	}

	var (
		out     model.Reservation
		deposit model.Payment
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		client, err := s.resolveClient(ctx, tx, actor, in)
		if err != nil {
			return err
		}
		court, err := tx.CourtByID(ctx, in.CourtID)
		if err != nil {
			return notFound(err, "court_id", "court not found")
		}
		if !court.Available {
			return apperror.Validation("court_id", "court is not available for booking")
		}
		total := catalog.Price(court, in.Start)
		if policy.DepositRequired(actor, client) && in.Deposit < model.MinimumDeposit {
			return apperror.Validation("amount_paid", "minimum deposit required: "+model.MinimumDeposit.String())
		}
		if in.Deposit > total {
			return apperror.Conflict("amount_paid", "deposit exceeds the reservation total "+total.String())
		}
		if err := checkSlot(ctx, tx, model.OverlapQuery{CourtID: court.ID, Date: in.Date, Start: in.Start, End: in.End}); err != nil {
			return err
		}

		now := s.now().UTC()
		r := model.Reservation{
			CourtID:     court.ID,
			ClientID:    client.ID,
			Date:        in.Date,
			StartTime:   in.Start,
			EndTime:     in.End,
			AmountPaid:  in.Deposit,
			AmountTotal: total,
			State:       model.StatePendingApproval,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if actor.Role.IsStaff() {
			id := actor.ID
			r.HandledBy = &id
		}
		// Waived clients always wait for staff approval.
		if !client.CanReserveWithoutDeposit {
			r.State = model.DerivePaidState(r.State, r.AmountPaid, r.AmountTotal)
		}
		if err := tx.CreateReservation(ctx, &r); err != nil {
			return notFound(err, "client_id", "client not found")
		}
		if r.AmountPaid > 0 {
			note := model.InitialDepositNote
			deposit = model.Payment{
				ReservationID: r.ID,
				Amount:        r.AmountPaid,
				Method:        model.MethodCash,
				State:         model.PaymentPending,
				Credited:      true,
				Note:          &note,
				CreatedAt:     now,
			}
			if err := tx.CreatePayment(ctx, &deposit); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}

	s.log.InfoContext(ctx, "reservation created",
		"reservation_id", out.ID, "court_id", out.CourtID, "client_id", out.ClientID,
		"state", out.State, "amount_total", out.AmountTotal.String())
	evs := []queue.Event{queue.ReservationEvent(queue.ReservationCreated, actor.ID, out)}
	if deposit.ID != 0 {
		evs = append(evs, queue.PaymentEvent(queue.PaymentRecorded, actor.ID, deposit, out))
	}
	s.emit(ctx, evs...)
	return out, nil
}

// resolveClient returns the client a booking is for.  Clients may only book
// for themselves; staff must name an existing client account.
func (s *Service) resolveClient(ctx context.Context, tx repository.Tx, actor model.Actor, in CreateInput) (model.Actor, error) {
	username := strings.TrimSpace(in.ClientUsername)
	if !actor.Role.IsStaff() {
		if (in.ClientID != 0 && in.ClientID != actor.ID) || (username != "" && username != actor.Username) {
			return model.Actor{}, denied(policy.ErrDenied, "clients may only book for themselves")
		}
		return actor, nil
	}
	if err := authorize(actor, policy.ActionBookForClient, "not allowed to book for clients"); err != nil {
		return model.Actor{}, err
	}

	var (
		client model.Actor
		err    error
	)
	switch {
	case in.ClientID != 0:
		client, err = tx.ActorByID(ctx, in.ClientID)
	case username != "":
		client, err = tx.ActorByUsername(ctx, username)
	default:
		return model.Actor{}, apperror.Validation("client_id", "client_id or client_username is required for staff bookings")
	}
	if err != nil {
		return model.Actor{}, notFound(err, "client_id", "client not found")
	}
	if client.Role != model.RoleClient {
		return model.Actor{}, apperror.Validation("client_id", "reservations can only be made for client accounts")
	}
	return client, nil
}

// Update applies a patch according to the editor's role.  Clients may
// cancel or reschedule their own non-terminal reservations; the state is
// then derived from the money.  Staff edits are applied as given.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uint64, p Patch) (model.Reservation, error) {
	if err := authorize(actor, policy.ActionEditReservation, "not allowed to edit reservations"); err != nil {
		return model.Reservation{}, err
	}

	var (
		out     model.Reservation
		changed bool
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := s.lockForEdit(ctx, tx, id, p)
		if err != nil {
			return err
		}
		if err := authorizeObject(actor, policy.ActionEditReservation, r.ClientID, "reservation belongs to another client"); err != nil {
			return err
		}
		before := r

		switch policy.EditModeFor(actor.Role) {
		case policy.EditRaw:
			err = s.applyRaw(ctx, tx, &r, p)
		default:
			err = s.applyRestricted(ctx, tx, &r, p)
		}
		if err != nil {
			return err
		}
		if sameReservation(r, before) {
			out = r
			return nil
		}

		if r.State.Active() {
			q := model.OverlapQuery{CourtID: r.CourtID, Date: r.Date, Start: r.StartTime, End: r.EndTime, ExcludeID: r.ID}
			if err := checkSlot(ctx, tx, q, partition{before.CourtID, before.Date}); err != nil {
				return err
			}
		}
		r.UpdatedAt = s.now().UTC()
		if err := tx.UpdateReservation(ctx, &r); err != nil {
			return notFound(err, "court_id", "court not found")
		}
		out, changed = r, true
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	if changed {
		s.log.InfoContext(ctx, "reservation updated", "reservation_id", out.ID, "actor_id", actor.ID, "state", out.State)
		s.emit(ctx, queue.ReservationEvent(queue.ReservationUpdated, actor.ID, out))
	}
	return out, nil
}

// lockForEdit takes the court-day locks of the reservation's current slot
// and of the slot p moves it to, then row-locks the reservation.  Creates
// lock the court day before reading overlapping rows, so every writer
// acquires partitions first and rows second.
func (s *Service) lockForEdit(ctx context.Context, tx repository.Tx, id uint64, p Patch) (model.Reservation, error) {
	cur, err := tx.ReservationByID(ctx, id)
	if err != nil {
		return model.Reservation{}, notFound(err, "id", "reservation not found")
	}
	keys := []partition{{cur.CourtID, cur.Date}}
	target := partition{cur.CourtID, cur.Date}
	if p.CourtID != nil {
		target.courtID = *p.CourtID
	}
	if p.Date != nil {
		target.day = *p.Date
	}
	if target.courtID != 0 && !target.day.IsZero() {
		keys = append(keys, target)
	}
	if err := lockPartitions(ctx, tx, keys); err != nil {
		return model.Reservation{}, notFound(err, "court_id", "court not found")
	}

	r, err := tx.ReservationByIDForUpdate(ctx, id)
	if err != nil {
		return model.Reservation{}, notFound(err, "id", "reservation not found")
	}
	if r.CourtID != cur.CourtID || !r.Date.Equal(cur.Date) {
		return model.Reservation{}, apperror.Conflict("id", "reservation was moved by another request, retry")
	}
	return r, nil
}

// applyRestricted is the client edit path.  Money, ownership and staff
// fields are dropped; any requested state other than CANCELLED is ignored.
// A client may cancel in any state; cancelling twice is a no-op.
func (s *Service) applyRestricted(ctx context.Context, tx repository.Tx, r *model.Reservation, p Patch) error {
	cancel := p.State != nil && *p.State == model.StateCancelled
	if cancel {
		if r.State != model.StateCancelled {
			r.Cancel(trimmed(p.CancellationReason))
		}
		return nil
	}
	if r.State.Terminal() {
		return apperror.Conflict("state", "reservation is "+string(r.State)+" and can no longer be changed")
	}
	if p.reschedules() {
		if err := s.reschedule(ctx, tx, r, p); err != nil {
			return err
		}
	}
	r.State = model.DerivePaidState(r.State, r.AmountPaid, r.AmountTotal)
	return nil
}

// applyRaw is the staff edit path.  Every supplied field is written
// without deriving the state.
func (s *Service) applyRaw(ctx context.Context, tx repository.Tx, r *model.Reservation, p Patch) error {
	if p.reschedules() {
		if err := s.reschedule(ctx, tx, r, p); err != nil {
			return err
		}
	}
	if p.AmountPaid != nil {
		if *p.AmountPaid < 0 {
			return apperror.Validation("amount_paid", "amount_paid must not be negative")
		}
		if !p.AmountPaid.InRange() {
			return apperror.Validation("amount_paid", model.ErrMoneyRange.Error())
		}
		r.AmountPaid = *p.AmountPaid
	}
	if p.AmountTotal != nil {
		if *p.AmountTotal <= 0 {
			return apperror.Validation("amount_total", "amount_total must be positive")
		}
		if !p.AmountTotal.InRange() {
			return apperror.Validation("amount_total", model.ErrMoneyRange.Error())
		}
		r.AmountTotal = *p.AmountTotal
	}
	if p.ClientID != nil && *p.ClientID != r.ClientID {
		c, err := tx.ActorByID(ctx, *p.ClientID)
		if err != nil {
			return notFound(err, "client_id", "client not found")
		}
		if c.Role != model.RoleClient {
			return apperror.Validation("client_id", "reservations can only belong to client accounts")
		}
		r.ClientID = c.ID
	}
	if p.HandledBy != nil {
		if *p.HandledBy == 0 {
			r.HandledBy = nil
		} else {
			h, err := tx.ActorByID(ctx, *p.HandledBy)
			if err != nil {
				return notFound(err, "handled_by", "staff member not found")
			}
			if !h.Role.IsStaff() {
				return apperror.Validation("handled_by", "handled_by must be a worker or administrator")
			}
			id := h.ID
			r.HandledBy = &id
		}
	}
	if p.State != nil {
		if !p.State.Valid() {
			return apperror.Validation("state", "unknown reservation state")
		}
		r.State = *p.State
	}
	if r.State == model.StateCancelled {
		if p.CancellationReason != nil {
			r.CancellationReason = trimmed(p.CancellationReason)
		}
	} else {
		r.CancellationReason = nil
	}
	return nil
}

// reschedule moves r to the patched court, date and time range.  The price
// stays as persisted at creation.
func (s *Service) reschedule(ctx context.Context, tx repository.Tx, r *model.Reservation, p Patch) error {
	courtID, day, start, end := r.CourtID, r.Date, r.StartTime, r.EndTime
	if p.CourtID != nil {
		courtID = *p.CourtID
	}
	if p.Date != nil {
		day = *p.Date
	}
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	if err := validateSlot(courtID, day, start, end); err != nil {
		return err
	}
	if courtID != r.CourtID {
		court, err := tx.CourtByID(ctx, courtID)
		if err != nil {
			return notFound(err, "court_id", "court not found")
		}
		if !court.Available {
			return apperror.Validation("court_id", "court is not available for booking")
		}
	}
	r.CourtID, r.Date, r.StartTime, r.EndTime = courtID, day, start, end
	return nil
}

// Get returns one reservation visible to actor.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uint64) (model.Reservation, error) {
	if err := authorize(actor, policy.ActionViewReservation, "not allowed to view reservations"); err != nil {
		return model.Reservation{}, err
	}
	r, err := s.store.ReservationByID(ctx, id)
	if err != nil {
		return model.Reservation{}, notFound(err, "id", "reservation not found")
	}
	if err := authorizeObject(actor, policy.ActionViewReservation, r.ClientID, "reservation belongs to another client"); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

// List returns the reservations of one view, scoped to what actor may see.
// "mine" always means the actor's own reservations, whatever the role.
func (s *Service) List(ctx context.Context, actor model.Actor, f model.ReservationFilter) ([]model.Reservation, error) {
	if err := authorize(actor, policy.ActionListReservations, "not allowed to list reservations"); err != nil {
		return nil, err
	}
	scope := policy.ScopeFor(actor)
	switch f.Kind {
	case "":
		f.Kind = model.ListAll
	case model.ListAll, model.ListWithBalance:
	case model.ListMine:
		scope = policy.Scope{ClientID: actor.ID}
	default:
		return nil, apperror.Validation("filter", "filter must be one of all, mine, with-balance")
	}
	return s.store.ListReservations(ctx, scope, f)
}

// Delete removes a reservation and its payments.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	if err := authorize(actor, policy.ActionDeleteReservation, "not allowed to delete reservations"); err != nil {
		return err
	}
	var gone model.Reservation
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := tx.ReservationByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "id", "reservation not found")
		}
		if err := authorizeObject(actor, policy.ActionDeleteReservation, r.ClientID, "reservation belongs to another client"); err != nil {
			return err
		}
		if err := tx.DeleteReservation(ctx, id); err != nil {
			return notFound(err, "id", "reservation not found")
		}
		gone = r
		return nil
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "reservation deleted", "reservation_id", id, "actor_id", actor.ID)
	s.emit(ctx, queue.ReservationEvent(queue.ReservationDeleted, actor.ID, gone))
	return nil
}

func validateSlot(courtID uint64, day model.Date, start, end model.Clock) error {
	switch {
	case courtID == 0:
		return apperror.Validation("court_id", "court_id is required")
	case day.IsZero():
		return apperror.Validation("date", "date is required")
	case start < 0 || end > model.NewClock(24, 0):
		return apperror.Validation("start_time", "time range must fall within the day")
	case start >= end:
		return apperror.Validation("end_time", "end_time must be after start_time")
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// sameReservation compares the fields an update can change.
func sameReservation(a, b model.Reservation) bool {
	return a.CourtID == b.CourtID && a.ClientID == b.ClientID &&
		a.Date.Equal(b.Date) && a.StartTime == b.StartTime && a.EndTime == b.EndTime &&
		a.AmountPaid == b.AmountPaid && a.AmountTotal == b.AmountTotal && a.State == b.State &&
		eqUint(a.HandledBy, b.HandledBy) && eqString(a.CancellationReason, b.CancellationReason)
}

func eqUint(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
