package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/catalog"
	"github.com/iliyamo/court-reservation/internal/model"
)

// CourtHandler serves the court catalog.  Reads are public; writes require
// an administrator, which the catalog service checks.
type CourtHandler struct {
	svc *catalog.Service
	log *slog.Logger
}

// NewCourtHandler panics when svc is nil.
func NewCourtHandler(svc *catalog.Service, logger *slog.Logger) *CourtHandler {
	if svc == nil {
		panic("nil catalog service passed to NewCourtHandler")
	}
	return &CourtHandler{svc: svc, log: orDefault(logger)}
}

type courtRequest struct {
	Name      string        `json:"name" validate:"required,max=100"`
	Sport     model.Sport   `json:"sport" validate:"required,oneof=soccer volleyball"`
	Quality   model.Quality `json:"quality" validate:"omitempty,oneof=basic premium"`
	DayRate   model.Money   `json:"day_rate" validate:"gt=0"`
	NightRate model.Money   `json:"night_rate" validate:"gt=0"`
	Available *bool         `json:"available"`
}

type courtPatchRequest struct {
	Name      *string        `json:"name" validate:"omitempty,max=100"`
	Sport     *model.Sport   `json:"sport" validate:"omitempty,oneof=soccer volleyball"`
	Quality   *model.Quality `json:"quality" validate:"omitempty,oneof=basic premium"`
	DayRate   *model.Money   `json:"day_rate"`
	NightRate *model.Money   `json:"night_rate"`
	Available *bool          `json:"available"`
}

// List handles GET /v1/courts[?available=true].
func (h *CourtHandler) List(c echo.Context) error {
	onlyAvailable := false
	if raw := strings.TrimSpace(c.QueryParam("available")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return respondError(c, h.log, apperror.Validation("available", "must be true or false"))
		}
		onlyAvailable = v
	}
	courts, err := h.svc.List(c.Request().Context(), onlyAvailable)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if courts == nil {
		courts = []model.Court{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": courts})
}

// Get handles GET /v1/courts/:id.
func (h *CourtHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	court, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, court)
}

// Create handles POST /v1/courts.
func (h *CourtHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req courtRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	court, err := h.svc.Create(c.Request().Context(), a, catalog.CourtInput{
		Name:      req.Name,
		Sport:     req.Sport,
		Quality:   req.Quality,
		DayRate:   req.DayRate,
		NightRate: req.NightRate,
		Available: req.Available,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, court)
}

// Update handles PATCH /v1/courts/:id.
func (h *CourtHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req courtPatchRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	court, err := h.svc.Update(c.Request().Context(), a, id, catalog.CourtPatch{
		Name:      req.Name,
		Sport:     req.Sport,
		Quality:   req.Quality,
		DayRate:   req.DayRate,
		NightRate: req.NightRate,
		Available: req.Available,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, court)
}

// Delete handles DELETE /v1/courts/:id.
func (h *CourtHandler) Delete(c echo.Context) error {
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
