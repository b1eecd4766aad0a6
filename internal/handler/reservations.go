package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/booking"
	"github.com/iliyamo/court-reservation/internal/model"
)

// ReservationHandler exposes the reservation lifecycle and the installment
// endpoint.  All routes require JWTAuth; role and ownership rules are
// enforced by the booking service.
type ReservationHandler struct {
	svc *booking.Service
	log *slog.Logger
}

// NewReservationHandler panics when svc is nil.
func NewReservationHandler(svc *booking.Service, logger *slog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil booking service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, log: orDefault(logger)}
}

type reservationRequest struct {
	CourtID        uint64       `json:"court_id" validate:"required"`
	Date           *model.Date  `json:"date" validate:"required"`
	StartTime      *model.Clock `json:"start_time" validate:"required"`
	EndTime        *model.Clock `json:"end_time" validate:"required"`
	Deposit        model.Money  `json:"amount_paid"` // initial payment
	ClientID       uint64       `json:"client_id"`
	ClientUsername string       `json:"client_username" validate:"max=150"`
}

type reservationPatchRequest struct {
	CourtID            *uint64                 `json:"court_id"`
	Date               *model.Date             `json:"date"`
	StartTime          *model.Clock            `json:"start_time"`
	EndTime            *model.Clock            `json:"end_time"`
	State              *model.ReservationState `json:"state"`
	CancellationReason *string                 `json:"cancellation_reason"`
	AmountPaid         *model.Money            `json:"amount_paid"`
	AmountTotal        *model.Money            `json:"amount_total"`
	ClientID           *uint64                 `json:"client_id"`
	HandledBy          *uint64                 `json:"handled_by"`
}

type paymentRequest struct {
	ReservationID uint64      `json:"reservation_id"`
	Amount        model.Money `json:"amount" validate:"gt=0"`
	Method        string      `json:"method" validate:"max=50"`
	Note          *string     `json:"note"`
	ProofImage    *string     `json:"proof_image" validate:"omitempty,max=255"`
}

func (r paymentRequest) input(reservationID uint64) booking.PaymentInput {
	return booking.PaymentInput{
		ReservationID: reservationID,
		Amount:        r.Amount,
		Method:        r.Method,
		Note:          r.Note,
		ProofImage:    r.ProofImage,
	}
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req reservationRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.svc.Create(c.Request().Context(), a, booking.CreateInput{
		CourtID:        req.CourtID,
		Date:           *req.Date,
		Start:          *req.StartTime,
		End:            *req.EndTime,
		Deposit:        req.Deposit,
		ClientID:       req.ClientID,
		ClientUsername: req.ClientUsername,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List handles GET /v1/reservations?filter=all|mine|with-balance&court_id=&date=.
func (h *ReservationHandler) List(c echo.Context) error {
	return h.list(c, model.ReservationListKind(c.QueryParam("filter")))
}

// Mine handles GET /v1/reservations/mine.
func (h *ReservationHandler) Mine(c echo.Context) error { return h.list(c, model.ListMine) }

// WithBalance handles GET /v1/reservations/with-balance.
func (h *ReservationHandler) WithBalance(c echo.Context) error {
	return h.list(c, model.ListWithBalance)
}

func (h *ReservationHandler) list(c echo.Context, kind model.ReservationListKind) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	f := model.ReservationFilter{Kind: kind}
	if f.CourtID, err = queryUint(c, "court_id"); err != nil {
		return respondError(c, h.log, err)
	}
	if f.Date, err = queryDate(c, "date"); err != nil {
		return respondError(c, h.log, err)
	}
	items, err := h.svc.List(c.Request().Context(), a, f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if items == nil {
		items = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.svc.Get(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Update handles PATCH /v1/reservations/:id.  Clients may only cancel or
// reschedule; other fields are ignored for them.
func (h *ReservationHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req reservationPatchRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.svc.Update(c.Request().Context(), a, id, booking.Patch{
		CourtID:            req.CourtID,
		Date:               req.Date,
		Start:              req.StartTime,
		End:                req.EndTime,
		State:              req.State,
		CancellationReason: req.CancellationReason,
		AmountPaid:         req.AmountPaid,
		AmountTotal:        req.AmountTotal,
		ClientID:           req.ClientID,
		HandledBy:          req.HandledBy,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Delete handles DELETE /v1/reservations/:id.  Payments go with it.
func (h *ReservationHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.svc.Delete(c.Request().Context(), a, id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddInstallment handles POST /v1/reservations/:id/installments.  The
// amount is credited immediately.
func (h *ReservationHandler) AddInstallment(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req paymentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.svc.AddInstallment(c.Request().Context(), a, req.input(id))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
