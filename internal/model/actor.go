package model

import "time"

// Role is the tagged variant carried by every authenticated actor.  The set
// is closed: anything outside it is rejected at the identity boundary.
type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a claim or column value onto a Role.  The boolean is false
// for unknown values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleWorker, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// IsStaff reports whether the role may act on behalf of clients.
func (r Role) IsStaff() bool { return r == RoleWorker || r == RoleAdmin }

// Actor represents an account as stored in the `actors` table and as
// reconstructed from an access token.  Registration and credential
// handling live outside this service; only the fields the booking core
// consults are kept here.
//
// Fields:
//
//	ID                       – primary key identifier.
//	Username                 – unique login name, used by staff to book for a client.
//	Role                     – client, worker or admin.
//	CanReserveWithoutDeposit – deposit waiver, meaningful for clients only.
//	CreatedAt                – timestamp of creation.
type Actor struct {
	ID                       uint64    `json:"id"`                          // actors.id
	Username                 string    `json:"username"`                    // actors.username
	Role                     Role      `json:"role"`                        // actors.role
	CanReserveWithoutDeposit bool      `json:"can_reserve_without_deposit"` // actors.can_reserve_without_deposit
	CreatedAt                time.Time `json:"created_at"`                  // actors.created_at
}
