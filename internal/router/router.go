// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/handler"
	"github.com/iliyamo/court-reservation/internal/middleware"
	"github.com/iliyamo/court-reservation/internal/model"
)

// Deps bundles the handlers and shared middleware the routes need.  Nil
// middleware is skipped.
type Deps struct {
	Courts       *handler.CourtHandler
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler

	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes mounts every endpoint on e.  The health check lives
// outside /v1 so that load balancers bypass rate limiting.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	registerCourts(e, d)
	registerBooking(e, d)
}

// registerCourts mounts the catalog.  Reads are public and cached; writes
// need an administrator token.
func registerCourts(e *echo.Echo, d Deps) {
	public := e.Group("/v1/courts", compact(d.RateLimit, d.Cache)...)
	public.GET("", d.Courts.List)
	public.GET("/:id", d.Courts.Get)

	admin := e.Group("/v1/courts", compact(
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		d.RateLimit,
	)...)
	admin.POST("", d.Courts.Create)
	admin.PATCH("/:id", d.Courts.Update)
	admin.DELETE("/:id", d.Courts.Delete)
}

// registerBooking mounts reservations and payments.  Any authenticated
// actor reaches them; the booking service applies the role table.
func registerBooking(e *echo.Echo, d Deps) {
	g := e.Group("/v1", compact(middleware.JWTAuth(d.JWTSecret), d.RateLimit)...)
	g.GET("/me", handler.Me)

	r := d.Reservations
	g.POST("/reservations", r.Create)
	g.GET("/reservations", r.List)
	g.GET("/reservations/mine", r.Mine)
	g.GET("/reservations/with-balance", r.WithBalance)
	g.GET("/reservations/:id", r.Get)
	g.PATCH("/reservations/:id", r.Update)
	g.DELETE("/reservations/:id", r.Delete)
	g.POST("/reservations/:id/installments", r.AddInstallment)

	p := d.Payments
	g.POST("/payments", p.Create)
	g.GET("/payments", p.List)
	g.GET("/payments/:id", p.Get)

	staff := e.Group("/v1/payments", compact(
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleWorker, model.RoleAdmin),
		d.RateLimit,
	)...)
	staff.PATCH("/:id", p.SetState)
	staff.POST("/:id/confirm", p.Confirm)
}

func compact(ms ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := ms[:0]
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
