package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/repository/memstore"
)

func TestPriceDayNightBoundary(t *testing.T) {
	c := model.Court{DayRate: model.Units(20), NightRate: model.Units(30), Sport: model.SportVolleyball}
	for h := 0; h < 24; h++ {
		want := c.DayRate
		if h >= 18 {
			want = c.NightRate
		}
		for _, m := range []int{0, 59} {
			if got := Price(c, model.NewClock(h, m)); got != want {
				t.Fatalf("Price(%02d:%02d) = %s, want %s", h, m, got, want)
			}
		}
	}
}

type purgeCounter struct{ n int }

func (p *purgeCounter) Purge(context.Context) error { p.n++; return nil }

func newCatalog(t *testing.T) (*Service, *memstore.Store, *purgeCounter) {
	t.Helper()
	st := memstore.New()
	pc := &purgeCounter{}
	return NewService(st, pc, nil), st, pc
}

var admin = model.Actor{ID: 1, Role: model.RoleAdmin}

func TestCreateCourtValidatesAndDefaults(t *testing.T) {
	svc, _, pc := newCatalog(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, CourtInput{Name: "A", Sport: "tennis", DayRate: 1, NightRate: 1})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for sport, got %v", err)
	}
	_, err = svc.Create(ctx, admin, CourtInput{Name: "A", Sport: model.SportSoccer, DayRate: 0, NightRate: 1})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for rate, got %v", err)
	}

	_, err = svc.Create(ctx, admin, CourtInput{Name: "A", Sport: model.SportSoccer, DayRate: 1, NightRate: model.MaxMoney + 1})
	var de *apperror.Error
	if !errors.As(err, &de) || de.Field != "night_rate" {
		t.Fatalf("expected night_rate range error, got %v", err)
	}

	c, err := svc.Create(ctx, admin, CourtInput{Name: " Court 1 ", Sport: model.SportSoccer, DayRate: model.Units(20), NightRate: model.Units(30)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || c.Name != "Court 1" || c.Quality != model.QualityBasic || !c.Available {
		t.Fatalf("unexpected court: %+v", c)
	}
	if pc.n != 1 {
		t.Fatalf("expected one cache purge, got %d", pc.n)
	}

	_, err = svc.Create(ctx, admin, CourtInput{Name: "court 1", Sport: model.SportSoccer, DayRate: 1, NightRate: 1})
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}
}

func TestCourtWritesNeedAdmin(t *testing.T) {
	svc, _, _ := newCatalog(t)
	worker := model.Actor{ID: 2, Role: model.RoleWorker}
	_, err := svc.Create(context.Background(), worker, CourtInput{Name: "A", Sport: model.SportSoccer, DayRate: 1, NightRate: 1})
	if !apperror.Is(err, apperror.KindPolicy) {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestReferencedCourtIsFrozen(t *testing.T) {
	svc, st, _ := newCatalog(t)
	ctx := context.Background()
	client := st.AddActor(model.Actor{Username: "ana", Role: model.RoleClient})
	c, err := svc.Create(ctx, admin, CourtInput{Name: "Court 1", Sport: model.SportSoccer, DayRate: model.Units(20), NightRate: model.Units(30)})
	if err != nil {
		t.Fatal(err)
	}
	err = st.InTx(ctx, func(tx repository.Tx) error {
		return tx.CreateReservation(ctx, &model.Reservation{
			CourtID: c.ID, ClientID: client.ID, Date: model.NewDate(2024, 1, 1),
			StartTime: model.NewClock(10, 0), EndTime: model.NewClock(11, 0),
			AmountTotal: c.DayRate, State: model.StatePendingApproval,
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	sport := model.SportVolleyball
	if _, err := svc.Update(ctx, admin, c.ID, CourtPatch{Sport: &sport}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on sport change, got %v", err)
	}
	rate := model.Units(25)
	off := false
	got, err := svc.Update(ctx, admin, c.ID, CourtPatch{DayRate: &rate, Available: &off})
	if err != nil {
		t.Fatalf("rate update: %v", err)
	}
	if got.DayRate != rate || got.Available {
		t.Fatalf("patch not applied: %+v", got)
	}
	if err := svc.Delete(ctx, admin, c.ID); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on delete, got %v", err)
	}

	list, err := svc.List(ctx, true)
	if err != nil || len(list) != 0 {
		t.Fatalf("unavailable court should be filtered: %v %v", list, err)
	}
}

func TestDeleteUnreferencedCourt(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, admin, CourtInput{Name: "Court 2", Sport: model.SportVolleyball, Quality: model.QualityPremium, DayRate: 1, NightRate: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, admin, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
