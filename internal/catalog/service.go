// Package catalog manages the court reference data and prices reservations.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/policy"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// Invalidator drops cached catalog responses after a write.
type Invalidator interface {
	Purge(ctx context.Context) error
}

// Service exposes court CRUD.  Reads are public; writes need the
// courts.manage capability.
type Service struct {
	store repository.Store
	cache Invalidator
	log   *slog.Logger
	now   func() time.Time
}

// NewService builds a catalog service.  cache may be nil.
func NewService(store repository.Store, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, log: logger.With("component", "catalog"), now: time.Now}
}

// CourtInput is the payload for creating a court.
type CourtInput struct {
	Name      string
	Sport     model.Sport
	Quality   model.Quality
	DayRate   model.Money
	NightRate model.Money
	Available *bool
}

// CourtPatch carries the fields to change on a court.  Nil means keep.
type CourtPatch struct {
	Name      *string
	Sport     *model.Sport
	Quality   *model.Quality
	DayRate   *model.Money
	NightRate *model.Money
	Available *bool
}

// structural reports whether the patch touches fields frozen once the court
// is referenced by a reservation.
func (p CourtPatch) structural() bool {
	return p.Name != nil || p.Sport != nil || p.Quality != nil
}

// List returns all courts, or only those accepting reservations.
func (s *Service) List(ctx context.Context, onlyAvailable bool) ([]model.Court, error) {
	return s.store.ListCourts(ctx, onlyAvailable)
}

// Get returns one court.
func (s *Service) Get(ctx context.Context, id uint64) (model.Court, error) {
	c, err := s.store.CourtByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Court{}, apperror.NotFound("court_id", "court not found")
	}
	return c, err
}

// Create adds a court to the catalog.
func (s *Service) Create(ctx context.Context, actor model.Actor, in CourtInput) (model.Court, error) {
	if err := policy.Authorize(actor, policy.ActionManageCourts); err != nil {
		return model.Court{}, apperror.Policy("only administrators manage courts").Wrap(err)
	}
	c := model.Court{
		Name:      strings.TrimSpace(in.Name),
		Sport:     in.Sport,
		Quality:   in.Quality,
		DayRate:   in.DayRate,
		NightRate: in.NightRate,
		Available: true,
	}
	if c.Quality == "" {
		c.Quality = model.QualityBasic
	}
	if in.Available != nil {
		c.Available = *in.Available
	}
	if err := validateCourt(c); err != nil {
		return model.Court{}, err
	}
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.CreateCourt(ctx, &c)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Court{}, apperror.Conflict("name", "a court with this name already exists")
	}
	if err != nil {
		return model.Court{}, err
	}
	s.log.InfoContext(ctx, "court created", "court_id", c.ID, "actor_id", actor.ID)
	s.purge(ctx)
	return c, nil
}

// Update applies a patch.  A court already referenced by a reservation
// only accepts rate and availability changes.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uint64, p CourtPatch) (model.Court, error) {
	if err := policy.Authorize(actor, policy.ActionManageCourts); err != nil {
		return model.Court{}, apperror.Policy("only administrators manage courts").Wrap(err)
	}
	var out model.Court
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		c, err := tx.CourtByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("court_id", "court not found")
		}
		if err != nil {
			return err
		}
		if p.structural() {
			used, err := tx.CourtReferenced(ctx, id)
			if err != nil {
				return err
			}
			if used {
				return apperror.Conflict("court_id", "court has reservations; only rates and availability may change")
			}
		}
		if p.Name != nil {
			c.Name = strings.TrimSpace(*p.Name)
		}
		if p.Sport != nil {
			c.Sport = *p.Sport
		}
		if p.Quality != nil {
			c.Quality = *p.Quality
		}
		if p.DayRate != nil {
			c.DayRate = *p.DayRate
		}
		if p.NightRate != nil {
			c.NightRate = *p.NightRate
		}
		if p.Available != nil {
			c.Available = *p.Available
		}
		if err := validateCourt(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now().UTC()
		if err := tx.UpdateCourt(ctx, &c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.Conflict("name", "a court with this name already exists")
			}
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return model.Court{}, err
	}
	s.log.InfoContext(ctx, "court updated", "court_id", out.ID, "actor_id", actor.ID)
	s.purge(ctx)
	return out, nil
}

// Delete removes a court that no reservation references.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	if err := policy.Authorize(actor, policy.ActionManageCourts); err != nil {
		return apperror.Policy("only administrators manage courts").Wrap(err)
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.CourtByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.NotFound("court_id", "court not found")
			}
			return err
		}
		used, err := tx.CourtReferenced(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return apperror.Conflict("court_id", "court has reservations")
		}
		return tx.DeleteCourt(ctx, id)
	})
	if errors.Is(err, repository.ErrReferenced) {
		return apperror.Conflict("court_id", "court has reservations")
	}
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "court deleted", "court_id", id, "actor_id", actor.ID)
	s.purge(ctx)
	return nil
}

func (s *Service) purge(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Purge(ctx); err != nil {
		s.log.WarnContext(ctx, "catalog cache purge failed", "error", err)
	}
}

func validateCourt(c model.Court) error {
	switch {
	case c.Name == "":
		return apperror.Validation("name", "name is required")
	case !c.Sport.Valid():
		return apperror.Validation("sport", "sport must be soccer or volleyball")
	case !c.Quality.Valid():
		return apperror.Validation("quality", "quality must be basic or premium")
	case c.DayRate <= 0:
		return apperror.Validation("day_rate", "day_rate must be positive")
	case c.NightRate <= 0:
		return apperror.Validation("night_rate", "night_rate must be positive")
	case !c.DayRate.InRange():
		return apperror.Validation("day_rate", model.ErrMoneyRange.Error())
	case !c.NightRate.InRange():
		return apperror.Validation("night_rate", model.ErrMoneyRange.Error())
	}
	return nil
}
