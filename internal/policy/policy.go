// Package policy is the access gate consulted by the catalog, booking and
// ledger services.  Every decision is a pure function of the actor's role,
// the action and, for object-level checks, the owner of the resource.
package policy

import (
	"errors"

	"github.com/iliyamo/court-reservation/internal/model"
)

// ErrDenied is returned when the actor's role does not grant the action or
// the object belongs to another client.
var ErrDenied = errors.New("forbidden")

// Action names an operation guarded by the policy table.
type Action string

const (
	ActionManageCourts       Action = "courts.manage"
	ActionManageActors       Action = "actors.manage"
	ActionCreateReservation  Action = "reservations.create"
	ActionBookForClient      Action = "reservations.create_for_client"
	ActionViewReservation    Action = "reservations.view"
	ActionEditReservation    Action = "reservations.edit"
	ActionDeleteReservation  Action = "reservations.delete"
	ActionListReservations   Action = "reservations.list"
	ActionAddInstallment     Action = "payments.installment"
	ActionRecordPayment      Action = "payments.record"
	ActionViewPayment        Action = "payments.view"
	ActionListPayments       Action = "payments.list"
	ActionVerifyPayment      Action = "payments.verify"
)

// Grant is the extent to which a role may perform an action.
type Grant int

const (
	GrantNone Grant = iota // action refused
	GrantOwn               // allowed on the actor's own resources only
	GrantAll               // allowed on any resource
)

// table is the authorization matrix.  Missing entries mean GrantNone.
var table = map[model.Role]map[Action]Grant{
	model.RoleAdmin: {
		ActionManageCourts:      GrantAll,
		ActionManageActors:      GrantAll,
		ActionCreateReservation: GrantAll,
		ActionBookForClient:     GrantAll,
		ActionViewReservation:   GrantAll,
		ActionEditReservation:   GrantAll,
		ActionDeleteReservation: GrantAll,
		ActionListReservations:  GrantAll,
		ActionAddInstallment:    GrantAll,
		ActionRecordPayment:     GrantAll,
		ActionViewPayment:       GrantAll,
		ActionListPayments:      GrantAll,
		ActionVerifyPayment:     GrantAll,
	},
	model.RoleWorker: {
		ActionCreateReservation: GrantAll,
		ActionBookForClient:     GrantAll,
		ActionViewReservation:   GrantAll,
		ActionEditReservation:   GrantAll,
		ActionDeleteReservation: GrantAll,
		ActionListReservations:  GrantAll,
		ActionAddInstallment:    GrantAll,
		ActionRecordPayment:     GrantAll,
		ActionViewPayment:       GrantAll,
		ActionListPayments:      GrantAll,
		ActionVerifyPayment:     GrantAll,
	},
	model.RoleClient: {
		ActionCreateReservation: GrantOwn,
		ActionViewReservation:   GrantOwn,
		ActionEditReservation:   GrantOwn,
		ActionDeleteReservation: GrantOwn,
		ActionListReservations:  GrantOwn,
		ActionAddInstallment:    GrantOwn,
		ActionRecordPayment:     GrantOwn,
		ActionViewPayment:       GrantOwn,
		ActionListPayments:      GrantOwn,
	},
}

// GrantFor returns the grant a role holds for an action.
func GrantFor(role model.Role, action Action) Grant {
	return table[role][action]
}

// Authorize checks the role-level capability only.  Actions granted on own
// resources pass; the caller must follow up with AuthorizeObject once the
// resource owner is known.
func Authorize(actor model.Actor, action Action) error {
	if GrantFor(actor.Role, action) == GrantNone {
		return ErrDenied
	}
	return nil
}

// AuthorizeObject checks the action against a resource owned by ownerID
// (the client of a reservation, or of a payment's reservation).
func AuthorizeObject(actor model.Actor, action Action, ownerID uint64) error {
	switch GrantFor(actor.Role, action) {
	case GrantAll:
		return nil
	case GrantOwn:
		if actor.ID != 0 && actor.ID == ownerID {
			return nil
		}
	}
	return ErrDenied
}

// EditMode describes how a reservation patch from a given role is applied.
type EditMode int

const (
	// EditRestricted strips state changes other than cancellation and
	// recomputes state from the paid amount.
	EditRestricted EditMode = iota
	// EditRaw applies every supplied field as-is.
	EditRaw
)

// EditModeFor returns the patch semantics for a role.
func EditModeFor(role model.Role) EditMode {
	if role.IsStaff() {
		return EditRaw
	}
	return EditRestricted
}

// DepositRequired reports whether a booking initiated by actor for client
// must carry the minimum deposit.
func DepositRequired(actor, client model.Actor) bool {
	return actor.Role == model.RoleClient && !client.CanReserveWithoutDeposit
}
