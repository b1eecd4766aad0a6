package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/repository/memstore"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
	fail   bool
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.fail {
		return errors.New("broker down")
	}
	return nil
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	events *recorder
	admin  model.Actor
	worker model.Actor
	client model.Actor
	other  model.Actor
	exempt model.Actor
	court  model.Court
}

var day = model.NewDate(2024, 1, 1)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{
		store:  st,
		events: &recorder{},
		admin:  st.AddActor(model.Actor{Username: "root", Role: model.RoleAdmin}),
		worker: st.AddActor(model.Actor{Username: "desk", Role: model.RoleWorker}),
		client: st.AddActor(model.Actor{Username: "ana", Role: model.RoleClient}),
		other:  st.AddActor(model.Actor{Username: "luis", Role: model.RoleClient}),
		exempt: st.AddActor(model.Actor{Username: "vip", Role: model.RoleClient, CanReserveWithoutDeposit: true}),
	}
	f.court = model.Court{Name: "Court 1", Sport: model.SportSoccer, Quality: model.QualityBasic,
		DayRate: model.Units(20), NightRate: model.Units(30), Available: true}
	err := st.InTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateCourt(context.Background(), &f.court)
	})
	if err != nil {
		t.Fatal(err)
	}
	f.svc = NewService(st, f.events, nil)
	return f
}

func (f *fixture) book(t *testing.T, actor model.Actor, start, end model.Clock, deposit model.Money) model.Reservation {
	t.Helper()
	r, err := f.svc.Create(context.Background(), actor, CreateInput{
		CourtID: f.court.ID, Date: day, Start: start, End: end, Deposit: deposit,
	})
	if err != nil {
		t.Fatalf("book %s-%s: %v", start, end, err)
	}
	return r
}

func clock(h, m int) model.Clock { return model.NewClock(h, m) }

func TestCourtScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))
	if r.AmountTotal != model.Units(20) || r.AmountPaid != model.Units(10) || r.State != model.StateApproved {
		t.Fatalf("unexpected reservation: total=%s paid=%s state=%s", r.AmountTotal, r.AmountPaid, r.State)
	}

	_, err := f.svc.Create(ctx, f.other, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(10, 30), End: clock(11, 30), Deposit: model.Units(10)})
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected overlap conflict, got %v", err)
	}

	res, err := f.svc.AddInstallment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.Units(10)})
	if err != nil {
		t.Fatalf("installment: %v", err)
	}
	if res.Reservation.AmountPaid != model.Units(20) || res.Reservation.State != model.StateFullyPaid {
		t.Fatalf("after installment: paid=%s state=%s", res.Reservation.AmountPaid, res.Reservation.State)
	}
	if res.Payment.State != model.PaymentPending || !res.Payment.Credited || res.Payment.Method != model.MethodMobileTransfer {
		t.Fatalf("unexpected installment payment: %+v", res.Payment)
	}

	// confirming a credited installment must not double count
	conf, err := f.svc.ConfirmPayment(ctx, f.worker, res.Payment.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if conf.Reservation.AmountPaid != model.Units(20) || conf.Payment.State != model.PaymentConfirmed {
		t.Fatalf("after confirm: paid=%s payment=%s", conf.Reservation.AmountPaid, conf.Payment.State)
	}

	want := []queue.EventType{queue.ReservationCreated, queue.PaymentRecorded, queue.InstallmentAdded, queue.PaymentStatusChanged}
	got := f.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestDepositPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.client, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(8, 0), End: clock(9, 0), Deposit: model.Units(5)})
	var de *apperror.Error
	if !errors.As(err, &de) || de.Kind != apperror.KindValidation || de.Field != "amount_paid" {
		t.Fatalf("expected deposit validation error, got %v", err)
	}
	f.book(t, f.client, clock(8, 0), clock(9, 0), model.Units(10))

	r := f.book(t, f.exempt, clock(12, 0), clock(13, 0), 0)
	if r.State != model.StatePendingApproval || r.AmountPaid != 0 {
		t.Fatalf("exempt booking: %+v", r)
	}
	r = f.book(t, f.exempt, clock(13, 0), clock(14, 0), model.Units(20))
	if r.State != model.StatePendingApproval {
		t.Fatalf("exempt bookings always wait for approval, got %s", r.State)
	}

	// the initial deposit is recorded as a pending, credited cash payment
	pays, err := f.svc.ListPayments(ctx, f.worker, model.ListAll, model.PaymentFilter{ReservationID: r.ID})
	if err != nil || len(pays) != 1 {
		t.Fatalf("expected one initial payment: %v %v", pays, err)
	}
	if p := pays[0]; p.Method != model.MethodCash || p.State != model.PaymentPending || !p.Credited || p.Note == nil || *p.Note != model.InitialDepositNote {
		t.Fatalf("unexpected initial payment: %+v", p)
	}
}

func TestStaffBookingForClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.worker, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(19, 0), End: clock(20, 0), ClientUsername: "ana"})
	if err != nil {
		t.Fatalf("staff booking: %v", err)
	}
	if r.ClientID != f.client.ID || r.HandledBy == nil || *r.HandledBy != f.worker.ID {
		t.Fatalf("ownership wrong: %+v", r)
	}
	if r.AmountTotal != model.Units(30) || r.State != model.StatePendingApproval {
		t.Fatalf("night price or state wrong: total=%s state=%s", r.AmountTotal, r.State)
	}

	_, err = f.svc.Create(ctx, f.worker, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(7, 0), End: clock(8, 0)})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("staff booking without client: %v", err)
	}
	_, err = f.svc.Create(ctx, f.worker, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(7, 0), End: clock(8, 0), ClientID: f.admin.ID})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("booking for a staff account: %v", err)
	}
	_, err = f.svc.Create(ctx, f.client, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(7, 0), End: clock(8, 0), Deposit: model.Units(10), ClientID: f.other.ID})
	if !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("client booking for another client: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []CreateInput{
		{Date: day, Start: clock(8, 0), End: clock(9, 0), Deposit: model.Units(10)},
		{CourtID: f.court.ID, Start: clock(8, 0), End: clock(9, 0), Deposit: model.Units(10)},
		{CourtID: f.court.ID, Date: day, Start: clock(9, 0), End: clock(9, 0), Deposit: model.Units(10)},
		{CourtID: f.court.ID, Date: day, Start: clock(8, 0), End: clock(9, 0), Deposit: -1},
	}
	for i, in := range cases {
		if _, err := f.svc.Create(ctx, f.client, in); !apperror.Is(err, apperror.KindValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := f.svc.Create(ctx, f.client, CreateInput{CourtID: 999, Date: day, Start: clock(8, 0), End: clock(9, 0), Deposit: model.Units(10)}); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("unknown court: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.client, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(8, 0), End: clock(9, 0), Deposit: model.Units(25)}); !apperror.Is(err, apperror.KindConflict) {
		t.Errorf("deposit above total: %v", err)
	}
}

func TestOverlapRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))

	// touching ranges do not overlap
	f.book(t, f.other, clock(11, 0), clock(12, 0), model.Units(10))
	f.book(t, f.other, clock(9, 0), clock(10, 0), model.Units(10))

	for _, rng := range [][2]model.Clock{{clock(10, 0), clock(11, 0)}, {clock(9, 30), clock(10, 1)}, {clock(10, 15), clock(10, 45)}} {
		_, err := f.svc.Create(ctx, f.other, CreateInput{CourtID: f.court.ID, Date: day, Start: rng[0], End: rng[1], Deposit: model.Units(10)})
		if !apperror.Is(err, apperror.KindConflict) {
			t.Fatalf("%s-%s: expected conflict, got %v", rng[0], rng[1], err)
		}
	}

	// a cancelled reservation frees its slot
	cancelled := model.StateCancelled
	if _, err := f.svc.Update(ctx, f.client, a.ID, Patch{State: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.book(t, f.other, clock(10, 0), clock(11, 0), model.Units(10))

	// a different day is independent
	_, err := f.svc.Create(ctx, f.other, CreateInput{CourtID: f.court.ID, Date: model.NewDate(2024, 1, 2), Start: clock(10, 0), End: clock(11, 0), Deposit: model.Units(10)})
	if err != nil {
		t.Fatalf("other day: %v", err)
	}

	err = f.store.InTx(ctx, func(tx repository.Tx) error {
		busy, err := HasConflict(ctx, tx, model.OverlapQuery{CourtID: f.court.ID, Date: day, Start: clock(10, 30), End: clock(10, 45)})
		if err != nil {
			return err
		}
		if !busy {
			t.Error("expected active reservation to conflict")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClientUpdateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))

	// a client cannot set FULLY_PAID or touch the money: fields are stripped
	full := model.StateFullyPaid
	paid := model.Units(20)
	got, err := f.svc.Update(ctx, f.client, r.ID, Patch{State: &full, AmountPaid: &paid})
	if err != nil {
		t.Fatalf("stripped update: %v", err)
	}
	if got.State != model.StateApproved || got.AmountPaid != model.Units(10) {
		t.Fatalf("client fields not stripped: %+v", got)
	}

	// another client cannot edit it
	if _, err := f.svc.Update(ctx, f.other, r.ID, Patch{Start: ptrClock(clock(12, 0))}); !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("foreign edit: %v", err)
	}

	// rescheduling onto a busy slot conflicts, excluding itself
	f.book(t, f.other, clock(12, 0), clock(13, 0), model.Units(10))
	if _, err := f.svc.Update(ctx, f.client, r.ID, Patch{Start: ptrClock(clock(12, 30)), End: ptrClock(clock(13, 30))}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("move onto busy slot: %v", err)
	}
	moved, err := f.svc.Update(ctx, f.client, r.ID, Patch{Start: ptrClock(clock(10, 30)), End: ptrClock(clock(11, 30))})
	if err != nil {
		t.Fatalf("shift within own slot: %v", err)
	}
	if moved.StartTime != clock(10, 30) || moved.AmountTotal != model.Units(20) {
		t.Fatalf("reschedule wrong: %+v", moved)
	}

	// cancel always succeeds, and again is a no-op
	cancelled := model.StateCancelled
	reason := "rain"
	c, err := f.svc.Update(ctx, f.client, r.ID, Patch{State: &cancelled, CancellationReason: &reason, Start: ptrClock(clock(12, 0))})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c.State != model.StateCancelled || c.CancellationReason == nil || *c.CancellationReason != "rain" || c.AmountPaid != model.Units(10) {
		t.Fatalf("cancel result: %+v", c)
	}
	if _, err := f.svc.Update(ctx, f.client, r.ID, Patch{State: &cancelled}); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if _, err := f.svc.Update(ctx, f.client, r.ID, Patch{Start: ptrClock(clock(15, 0))}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("edit of cancelled reservation: %v", err)
	}
}

func TestStaffRawEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))

	full := model.StateFullyPaid
	got, err := f.svc.Update(ctx, f.worker, r.ID, Patch{State: &full})
	if err != nil {
		t.Fatalf("raw edit: %v", err)
	}
	if got.State != model.StateFullyPaid || got.AmountPaid != model.Units(10) {
		t.Fatalf("raw edit not applied verbatim: %+v", got)
	}

	// the administrative backdoor can reopen a terminal reservation
	pending := model.StatePendingApproval
	if got, err = f.svc.Update(ctx, f.admin, r.ID, Patch{State: &pending}); err != nil || got.State != pending {
		t.Fatalf("reopen: %+v %v", got, err)
	}

	if _, err := f.svc.Update(ctx, f.worker, r.ID, Patch{HandledBy: &f.client.ID}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("handled_by must be staff: %v", err)
	}
	if got, err = f.svc.Update(ctx, f.worker, r.ID, Patch{HandledBy: &f.worker.ID}); err != nil || got.HandledBy == nil || *got.HandledBy != f.worker.ID {
		t.Fatalf("handled_by edit: %+v %v", got, err)
	}
	bad := model.ReservationState("DONE")
	if _, err := f.svc.Update(ctx, f.worker, r.ID, Patch{State: &bad}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("unknown state: %v", err)
	}
}

func TestConfirmPaymentCreditsReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))

	rec, err := f.svc.RecordPayment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.Units(4), Method: "CASH"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Payment.State != model.PaymentPending || rec.Payment.VerifiedBy != nil || rec.Reservation.AmountPaid != model.Units(10) {
		t.Fatalf("recorded payment must not touch the reservation: %+v", rec)
	}
	if _, err := f.svc.ConfirmPayment(ctx, f.client, rec.Payment.ID); !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("client confirm: %v", err)
	}

	res, err := f.svc.ConfirmPayment(ctx, f.worker, rec.Payment.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Reservation.AmountPaid != model.Units(14) || res.Reservation.State != model.StateApproved {
		t.Fatalf("P+X < T: %+v", res.Reservation)
	}
	if res.Payment.VerifiedBy == nil || *res.Payment.VerifiedBy != f.worker.ID {
		t.Fatalf("verified_by not set: %+v", res.Payment)
	}
	if _, err := f.svc.ConfirmPayment(ctx, f.worker, rec.Payment.ID); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("double confirm: %v", err)
	}

	rec, err = f.svc.RecordPayment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.Units(6)})
	if err != nil {
		t.Fatal(err)
	}
	res, err = f.svc.ConfirmPayment(ctx, f.admin, rec.Payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Reservation.AmountPaid != model.Units(20) || res.Reservation.State != model.StateFullyPaid {
		t.Fatalf("P+X >= T: %+v", res.Reservation)
	}

	// refunds leave amount_paid as is
	res, err = f.svc.SetPaymentState(ctx, f.worker, rec.Payment.ID, model.PaymentRefunded, nil)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if res.Reservation.AmountPaid != model.Units(20) || res.Payment.State != model.PaymentRefunded {
		t.Fatalf("refund result: %+v", res)
	}
}

func TestLedgerRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))

	if _, err := f.svc.AddInstallment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: 0}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("zero installment: %v", err)
	}
	var de *apperror.Error
	_, err := f.svc.AddInstallment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.MaxMoney + 1})
	if !errors.As(err, &de) || de.Kind != apperror.KindValidation || de.Field != "amount" {
		t.Fatalf("out of range installment: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.client, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(15, 0), End: clock(16, 0), Deposit: model.MaxMoney + 1}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("out of range deposit: %v", err)
	}
	if _, err := f.svc.AddInstallment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.Units(11)}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("installment above balance: %v", err)
	}
	if _, err := f.svc.AddInstallment(ctx, f.other, PaymentInput{ReservationID: r.ID, Amount: model.Units(1)}); !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("foreign installment: %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, f.client, PaymentInput{ReservationID: 999, Amount: model.Units(1)}); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("unknown reservation: %v", err)
	}

	rec, err := f.svc.RecordPayment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.Units(2)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SetPaymentState(ctx, f.worker, rec.Payment.ID, model.PaymentRefunded, nil); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("PENDING -> REFUNDED: %v", err)
	}
	rej, err := f.svc.SetPaymentState(ctx, f.worker, rec.Payment.ID, model.PaymentRejected, nil)
	if err != nil || rej.Reservation.AmountPaid != model.Units(10) {
		t.Fatalf("reject: %+v %v", rej, err)
	}

	cancelled := model.StateCancelled
	if _, err := f.svc.Update(ctx, f.client, r.ID, Patch{State: &cancelled}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddInstallment(ctx, f.client, PaymentInput{ReservationID: r.ID, Amount: model.Units(1)}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("installment on cancelled: %v", err)
	}
}

func TestListScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))
	f.book(t, f.other, clock(12, 0), clock(13, 0), model.Units(20))

	all, err := f.svc.List(ctx, f.client, model.ReservationFilter{Kind: model.ListAll})
	if err != nil || len(all) != 1 || all[0].ID != mine.ID {
		t.Fatalf("client sees only own reservations: %v %v", all, err)
	}
	all, err = f.svc.List(ctx, f.worker, model.ReservationFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("staff sees everything: %v %v", all, err)
	}
	bal, err := f.svc.List(ctx, f.worker, model.ReservationFilter{Kind: model.ListWithBalance})
	if err != nil || len(bal) != 1 || bal[0].ID != mine.ID {
		t.Fatalf("with-balance: %v %v", bal, err)
	}
	if _, err := f.svc.List(ctx, f.worker, model.ReservationFilter{Kind: "everything"}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("unknown filter: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.other, mine.ID); !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("foreign get: %v", err)
	}

	pays, err := f.svc.ListPayments(ctx, f.other, model.ListAll, model.PaymentFilter{})
	if err != nil || len(pays) != 1 {
		t.Fatalf("client payments: %v %v", pays, err)
	}
	if _, err := f.svc.GetPayment(ctx, f.client, pays[0].ID); !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("foreign payment: %v", err)
	}
}

func TestDeleteCascadesPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))
	if err := f.svc.Delete(ctx, f.other, r.ID); !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.worker, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	pays, err := f.svc.ListPayments(ctx, f.worker, model.ListAll, model.PaymentFilter{})
	if err != nil || len(pays) != 0 {
		t.Fatalf("payments should be gone: %v %v", pays, err)
	}
	if _, err := f.svc.Get(ctx, f.worker, r.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.events.fail = true
	f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))
}

func TestConcurrentBookingsOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.client, CreateInput{CourtID: f.court.ID, Date: day, Start: clock(16, 0), End: clock(17, 0), Deposit: model.Units(10)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperror.Is(err, apperror.KindConflict):
				clash++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || clash != 7 {
		t.Fatalf("ok=%d conflicts=%d", ok, clash)
	}
}

func ptrClock(c model.Clock) *model.Clock { return &c }

func TestClientCancelsFullyPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(20))
	if r.State != model.StateFullyPaid {
		t.Fatalf("state = %s, want FULLY_PAID", r.State)
	}

	cancelled := model.StateCancelled
	got, err := f.svc.Update(ctx, f.client, r.ID, Patch{State: &cancelled})
	if err != nil {
		t.Fatalf("cancel fully paid: %v", err)
	}
	if got.State != model.StateCancelled || got.AmountPaid != model.Units(20) {
		t.Fatalf("cancel result: %+v", got)
	}

	// the slot is free again
	f.book(t, f.other, clock(10, 0), clock(11, 0), model.Units(10))
}

// lockLog wraps a store and records the order in which a transaction takes
// court-day locks and reservation row locks.
type lockLog struct {
	repository.Store
	mu    sync.Mutex
	calls []string
}

func (l *lockLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *lockLog) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return l.Store.InTx(ctx, func(tx repository.Tx) error {
		return fn(&loggedTx{Tx: tx, log: l})
	})
}

type loggedTx struct {
	repository.Tx
	log *lockLog
}

func (t *loggedTx) LockCourtDay(ctx context.Context, courtID uint64, d model.Date) error {
	t.log.add(fmt.Sprintf("day %d %s", courtID, d))
	return t.Tx.LockCourtDay(ctx, courtID, d)
}

func (t *loggedTx) ReservationByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	t.log.add(fmt.Sprintf("row %d", id))
	return t.Tx.ReservationByIDForUpdate(ctx, id)
}

func TestUpdateLocksCourtDaysBeforeRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, f.client, clock(10, 0), clock(11, 0), model.Units(10))

	spy := &lockLog{Store: f.store}
	svc := NewService(spy, f.events, nil)
	next := model.NewDate(2024, 1, 2)
	if _, err := svc.Update(ctx, f.worker, r.ID, Patch{Date: &next}); err != nil {
		t.Fatalf("move: %v", err)
	}

	held := map[string]bool{}
	row := false
	for _, c := range spy.calls {
		switch {
		case strings.HasPrefix(c, "row"):
			row = true
		case !row:
			held[c] = true
		case !held[c]:
			t.Fatalf("court day lock %q taken after the row lock: %v", c, spy.calls)
		}
	}
	want := []string{fmt.Sprintf("day %d %s", f.court.ID, day), fmt.Sprintf("day %d %s", f.court.ID, next)}
	for _, w := range want {
		if !held[w] {
			t.Fatalf("missing %q before row lock: %v", w, spy.calls)
		}
	}
	if !row {
		t.Fatal("reservation row was never locked")
	}
}
