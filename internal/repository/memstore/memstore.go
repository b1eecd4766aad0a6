// Package memstore is an in-memory implementation of repository.Store.  It
// backs the "memory" store driver and the service and handler tests.
// Transactions run one at a time against a private copy of the data which
// replaces the live copy on commit, so a failed transaction leaves no trace.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
	"github.com/iliyamo/court-reservation/internal/repository"
)

type state struct {
	actors       map[uint64]model.Actor
	courts       map[uint64]model.Court
	reservations map[uint64]model.Reservation
	payments     map[uint64]model.Payment

	actorSeq, courtSeq, reservationSeq, paymentSeq uint64
}

func newState() *state {
	return &state{
		actors:       map[uint64]model.Actor{},
		courts:       map[uint64]model.Court{},
		reservations: map[uint64]model.Reservation{},
		payments:     map[uint64]model.Payment{},
	}
}

func (s *state) clone() *state {
	out := &state{
		actors:         make(map[uint64]model.Actor, len(s.actors)),
		courts:         make(map[uint64]model.Court, len(s.courts)),
		reservations:   make(map[uint64]model.Reservation, len(s.reservations)),
		payments:       make(map[uint64]model.Payment, len(s.payments)),
		actorSeq:       s.actorSeq,
		courtSeq:       s.courtSeq,
		reservationSeq: s.reservationSeq,
		paymentSeq:     s.paymentSeq,
	}
	for k, v := range s.actors {
		out.actors[k] = v
	}
	for k, v := range s.courts {
		out.courts[k] = v
	}
	for k, v := range s.reservations {
		out.reservations[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	return out
}

// Store holds the data behind a single mutex.
type Store struct {
	mu   sync.Mutex
	data *state
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store { return &Store{data: newState()} }

// AddActor inserts an account, assigning an ID when a.ID is zero, and
// returns the stored value.  Account management is outside the booking
// core, so this is how actors enter the in-memory store.
func (s *Store) AddActor(a model.Actor) model.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.data.actorSeq++
		a.ID = s.data.actorSeq
	} else if a.ID > s.data.actorSeq {
		s.data.actorSeq = a.ID
	}
	s.data.actors[a.ID] = a
	return a
}

// InTx runs fn against a copy of the data and publishes the copy when fn
// succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) CourtByID(_ context.Context, id uint64) (model.Court, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.court(id)
}

func (s *Store) ListCourts(_ context.Context, onlyAvailable bool) ([]model.Court, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Court, 0, len(s.data.courts))
	for _, c := range s.data.courts {
		if onlyAvailable && !c.Available {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ActorByID(_ context.Context, id uint64) (model.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.actor(id)
}

func (s *Store) ReservationByID(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.reservation(id)
}

func (s *Store) ListReservations(_ context.Context, scope policy.Scope, f model.ReservationFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.data.reservations {
		if !scope.Allows(r.ClientID) {
			continue
		}
		if f.CourtID != 0 && r.CourtID != f.CourtID {
			continue
		}
		if !f.Date.IsZero() && !r.Date.Equal(f.Date) {
			continue
		}
		if f.Kind == model.ListWithBalance && (r.State != model.StateApproved || r.AmountPaid >= r.AmountTotal) {
			continue
		}
		out = append(out, r)
	}
	if f.Kind == model.ListAll || f.Kind == "" {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
	} else {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Date.Equal(out[j].Date) {
				return out[j].Date.Before(out[i].Date)
			}
			if out[i].StartTime != out[j].StartTime {
				return out[i].StartTime > out[j].StartTime
			}
			return out[i].ID > out[j].ID
		})
	}
	return out, nil
}

func (s *Store) PaymentByID(_ context.Context, id uint64) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.payment(id)
}

func (s *Store) ListPayments(_ context.Context, scope policy.Scope, f model.PaymentFilter) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, p := range s.data.payments {
		r, ok := s.data.reservations[p.ReservationID]
		if !ok || !scope.Allows(r.ClientID) {
			continue
		}
		if f.ReservationID != 0 && p.ReservationID != f.ReservationID {
			continue
		}
		if f.State != "" && p.State != f.State {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *state) actor(id uint64) (model.Actor, error) {
	a, ok := s.actors[id]
	if !ok {
		return model.Actor{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *state) court(id uint64) (model.Court, error) {
	c, ok := s.courts[id]
	if !ok {
		return model.Court{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *state) reservation(id uint64) (model.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *state) payment(id uint64) (model.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, repository.ErrNotFound
	}
	return p, nil
}

// tx implements repository.Tx over a private copy of the state.  Locking
// is a no-op because the store runs a single transaction at a time.
type tx struct {
	st *state
}

func (t *tx) LockCourtDay(context.Context, uint64, model.Date) error { return nil }

func (t *tx) FindOverlapping(_ context.Context, q model.OverlapQuery) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range t.st.reservations {
		r := r
		if q.Matches(&r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (t *tx) CourtByID(_ context.Context, id uint64) (model.Court, error) { return t.st.court(id) }

func (t *tx) CreateCourt(_ context.Context, c *model.Court) error {
	if t.nameTaken(c.Name, 0) {
		return repository.ErrDuplicate
	}
	t.st.courtSeq++
	c.ID = t.st.courtSeq
	t.st.courts[c.ID] = *c
	return nil
}

func (t *tx) UpdateCourt(_ context.Context, c *model.Court) error {
	if _, ok := t.st.courts[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if t.nameTaken(c.Name, c.ID) {
		return repository.ErrDuplicate
	}
	t.st.courts[c.ID] = *c
	return nil
}

func (t *tx) nameTaken(name string, except uint64) bool {
	for id, c := range t.st.courts {
		if id != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (t *tx) DeleteCourt(ctx context.Context, id uint64) error {
	if _, ok := t.st.courts[id]; !ok {
		return repository.ErrNotFound
	}
	if used, _ := t.CourtReferenced(ctx, id); used {
		return repository.ErrReferenced
	}
	delete(t.st.courts, id)
	return nil
}

func (t *tx) CourtReferenced(_ context.Context, id uint64) (bool, error) {
	for _, r := range t.st.reservations {
		if r.CourtID == id {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) ActorByID(_ context.Context, id uint64) (model.Actor, error) { return t.st.actor(id) }

func (t *tx) ActorByUsername(_ context.Context, username string) (model.Actor, error) {
	for _, a := range t.st.actors {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Actor{}, repository.ErrNotFound
}

func (t *tx) CreateReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := t.st.courts[r.CourtID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := t.st.actors[r.ClientID]; !ok {
		return repository.ErrNotFound
	}
	t.st.reservationSeq++
	r.ID = t.st.reservationSeq
	t.st.reservations[r.ID] = *r
	return nil
}

func (t *tx) ReservationByID(_ context.Context, id uint64) (model.Reservation, error) {
	return t.st.reservation(id)
}

func (t *tx) ReservationByIDForUpdate(_ context.Context, id uint64) (model.Reservation, error) {
	return t.st.reservation(id)
}

func (t *tx) UpdateReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := t.st.reservations[r.ID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := t.st.courts[r.CourtID]; !ok {
		return repository.ErrNotFound
	}
	t.st.reservations[r.ID] = *r
	return nil
}

func (t *tx) DeleteReservation(_ context.Context, id uint64) error {
	if _, ok := t.st.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	for pid, p := range t.st.payments {
		if p.ReservationID == id {
			delete(t.st.payments, pid)
		}
	}
	delete(t.st.reservations, id)
	return nil
}

func (t *tx) CreatePayment(_ context.Context, p *model.Payment) error {
	if _, ok := t.st.reservations[p.ReservationID]; !ok {
		return repository.ErrNotFound
	}
	t.st.paymentSeq++
	p.ID = t.st.paymentSeq
	t.st.payments[p.ID] = *p
	return nil
}

func (t *tx) PaymentByIDForUpdate(_ context.Context, id uint64) (model.Payment, error) {
	return t.st.payment(id)
}

func (t *tx) UpdatePayment(_ context.Context, p *model.Payment) error {
	if _, ok := t.st.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	t.st.payments[p.ID] = *p
	return nil
}
