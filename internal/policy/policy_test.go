package policy

import (
	"errors"
	"testing"

	"github.com/iliyamo/court-reservation/internal/model"
)

var (
	admin  = model.Actor{ID: 1, Role: model.RoleAdmin}
	worker = model.Actor{ID: 2, Role: model.RoleWorker}
	client = model.Actor{ID: 3, Role: model.RoleClient}
)

func TestAuthorizeRoleTable(t *testing.T) {
	cases := []struct {
		actor  model.Actor
		action Action
		ok     bool
	}{
		{admin, ActionManageCourts, true},
		{admin, ActionManageActors, true},
		{worker, ActionManageCourts, false},
		{worker, ActionManageActors, false},
		{worker, ActionVerifyPayment, true},
		{worker, ActionBookForClient, true},
		{client, ActionCreateReservation, true},
		{client, ActionBookForClient, false},
		{client, ActionVerifyPayment, false},
		{client, ActionAddInstallment, true},
		{model.Actor{ID: 9, Role: "guest"}, ActionListReservations, false},
	}
	for _, tc := range cases {
		err := Authorize(tc.actor, tc.action)
		if tc.ok && err != nil {
			t.Errorf("%s %s: unexpected %v", tc.actor.Role, tc.action, err)
		}
		if !tc.ok && !errors.Is(err, ErrDenied) {
			t.Errorf("%s %s: expected ErrDenied, got %v", tc.actor.Role, tc.action, err)
		}
	}
}

func TestAuthorizeObject(t *testing.T) {
	if err := AuthorizeObject(client, ActionEditReservation, client.ID); err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	if err := AuthorizeObject(client, ActionEditReservation, 42); !errors.Is(err, ErrDenied) {
		t.Fatalf("foreign edit: expected ErrDenied, got %v", err)
	}
	if err := AuthorizeObject(worker, ActionDeleteReservation, 42); err != nil {
		t.Fatalf("worker delete: %v", err)
	}
	if err := AuthorizeObject(model.Actor{Role: model.RoleClient}, ActionViewReservation, 0); !errors.Is(err, ErrDenied) {
		t.Fatalf("anonymous client must not match zero owner")
	}
}

func TestScopeFor(t *testing.T) {
	if s := ScopeFor(admin); !s.Unrestricted() {
		t.Fatalf("admin scope should be unrestricted: %+v", s)
	}
	if s := ScopeFor(worker); !s.Allows(77) {
		t.Fatalf("worker scope should allow any client")
	}
	s := ScopeFor(client)
	if s.ClientID != client.ID || !s.Allows(client.ID) || s.Allows(client.ID+1) {
		t.Fatalf("client scope wrong: %+v", s)
	}
}

func TestEditModeAndDeposit(t *testing.T) {
	if EditModeFor(model.RoleClient) != EditRestricted {
		t.Fatal("client edits must be restricted")
	}
	if EditModeFor(model.RoleWorker) != EditRaw || EditModeFor(model.RoleAdmin) != EditRaw {
		t.Fatal("staff edits must be raw")
	}
	exempt := model.Actor{ID: 5, Role: model.RoleClient, CanReserveWithoutDeposit: true}
	if !DepositRequired(client, client) {
		t.Fatal("self-booking client needs a deposit")
	}
	if DepositRequired(exempt, exempt) {
		t.Fatal("exempt client needs no deposit")
	}
	if DepositRequired(worker, client) {
		t.Fatal("staff bookings are not held to the deposit rule")
	}
}
