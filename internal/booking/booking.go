// Package booking implements the reservation engine: the overlap
// validator, the reservation lifecycle and the payment ledger.  Every write
// runs inside one storage transaction; domain events are emitted only
// after the transaction commits.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// Publisher delivers domain events to the broker.  Failures are logged by
// the service and never fail the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Service groups the reservation and ledger operations.
type Service struct {
	store  repository.Store
	events Publisher
	log    *slog.Logger
	now    func() time.Time
}

// NewService builds a booking service.  events may be nil.
func NewService(store repository.Store, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, events: events, log: logger.With("component", "booking"), now: time.Now}
}

func (s *Service) emit(ctx context.Context, evs ...queue.Event) {
	if s.events == nil {
		return
	}
	for _, ev := range evs {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.WarnContext(ctx, "event publish failed", "type", ev.Type, "reservation_id", ev.ReservationID, "error", err)
		}
	}
}

func denied(err error, msg string) error {
	return apperror.Policy(msg).Wrap(err)
}

// notFound converts the storage sentinel into a domain error naming field.
func notFound(err error, field, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(field, msg).Wrap(err)
	}
	return err
}

func authorize(actor model.Actor, action policy.Action, msg string) error {
	if err := policy.Authorize(actor, action); err != nil {
		return denied(err, msg)
	}
	return nil
}

func authorizeObject(actor model.Actor, action policy.Action, owner uint64, msg string) error {
	if err := policy.AuthorizeObject(actor, action, owner); err != nil {
		return denied(err, msg)
	}
	return nil
}
