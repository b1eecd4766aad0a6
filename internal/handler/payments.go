package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/booking"
	"github.com/iliyamo/court-reservation/internal/model"
)

// PaymentHandler exposes the payment ledger.
type PaymentHandler struct {
	svc *booking.Service
	log *slog.Logger
}

// NewPaymentHandler panics when svc is nil.
func NewPaymentHandler(svc *booking.Service, logger *slog.Logger) *PaymentHandler {
	if svc == nil {
		panic("nil booking service passed to NewPaymentHandler")
	}
	return &PaymentHandler{svc: svc, log: orDefault(logger)}
}

type paymentStateRequest struct {
	State model.PaymentState `json:"state" validate:"required,oneof=PENDING CONFIRMED REJECTED REFUNDED"`
	Note  *string            `json:"note"`
}

// Create handles POST /v1/payments.  The payment stays PENDING until staff
// confirm it.
func (h *PaymentHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req paymentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	if req.ReservationID == 0 {
		return respondError(c, h.log, apperror.Validation("reservation_id", "reservation_id is required"))
	}
	res, err := h.svc.RecordPayment(c.Request().Context(), a, req.input(req.ReservationID))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List handles GET /v1/payments?filter=all|mine&reservation_id=&state=.
func (h *PaymentHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var f model.PaymentFilter
	if f.ReservationID, err = queryUint(c, "reservation_id"); err != nil {
		return respondError(c, h.log, err)
	}
	f.State = model.PaymentState(strings.ToUpper(strings.TrimSpace(c.QueryParam("state"))))
	kind := model.ReservationListKind(c.QueryParam("filter"))

	items, err := h.svc.ListPayments(c.Request().Context(), a, kind, f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if items == nil {
		items = []model.Payment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/payments/:id.
func (h *PaymentHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	p, err := h.svc.GetPayment(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// SetState handles PATCH /v1/payments/:id.
func (h *PaymentHandler) SetState(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req paymentStateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.svc.SetPaymentState(c.Request().Context(), a, id, req.State, req.Note)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Confirm handles POST /v1/payments/:id/confirm.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.svc.ConfirmPayment(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
