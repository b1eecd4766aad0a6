package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/model"
)

// Context keys set by JWTAuth.  "user_id" and "role" carry the raw claim
// values; "actor" carries the reconstructed model.Actor.
const (
	ctxActor  = "actor"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// SetActor stores a in the request context.
func SetActor(c echo.Context, a model.Actor) {
	c.Set(ctxActor, a)
	c.Set(ctxUserID, strconv.FormatUint(a.ID, 10))
	c.Set(ctxRole, string(a.Role))
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ctxActor).(model.Actor)
	return a, ok
}

// userID returns the authenticated user's id as a string, or "guest".
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "guest"
}
