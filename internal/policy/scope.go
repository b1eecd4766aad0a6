package policy

import "github.com/iliyamo/court-reservation/internal/model"

// Scope is the visibility window of an actor over reservations and
// payments.  It is built once per request and handed to the repositories,
// which translate it into a WHERE clause.
type Scope struct {
	// ClientID restricts results to one client's reservations when non-zero.
	ClientID uint64
}

// ScopeFor derives the visibility of an actor: clients see their own
// records, staff see everything.
func ScopeFor(actor model.Actor) Scope {
	if actor.Role.IsStaff() {
		return Scope{}
	}
	return Scope{ClientID: actor.ID}
}

// Unrestricted reports whether the scope covers every client.
func (s Scope) Unrestricted() bool { return s.ClientID == 0 }

// Allows reports whether a record owned by clientID is visible.
func (s Scope) Allows(clientID uint64) bool {
	return s.Unrestricted() || s.ClientID == clientID
}
