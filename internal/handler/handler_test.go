package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/apperror"
)

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{apperror.Validation("date", "bad date"), http.StatusBadRequest, `{"error":"bad date","field":"date"}`},
		{apperror.Policy("nope"), http.StatusForbidden, `{"error":"nope"}`},
		{apperror.Conflict("start_time", "taken"), http.StatusConflict, `{"error":"taken","field":"start_time"}`},
		{apperror.NotFound("id", "missing"), http.StatusNotFound, `{"error":"missing","field":"id"}`},
		{errors.New("db down"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tc := range cases {
		c, rec := newContext(http.MethodGet, "")
		if err := respondError(c, orDefault(nil), tc.err); err != nil {
			t.Fatalf("respondError: %v", err)
		}
		if rec.Code != tc.status || strings.TrimSpace(rec.Body.String()) != tc.body {
			t.Errorf("%v: got %d %s", tc.err, rec.Code, rec.Body)
		}
	}
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"sport":"soccer","day_rate":10,"night_rate":10}`)
	var req courtRequest
	err := bind(c, &req)
	var de *apperror.Error
	if !errors.As(err, &de) || de.Kind != apperror.KindValidation || de.Field != "name" {
		t.Fatalf("expected a validation error on name, got %v", err)
	}

	c, _ = newContext(http.MethodPost, `{"name":`)
	if err := bind(c, &req); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("malformed body: %v", err)
	}
}

func TestBindRequiresSlotFields(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"court_id":1,"date":"2024-01-01","start_time":"10:00"}`)
	var req reservationRequest
	err := bind(c, &req)
	var de *apperror.Error
	if !errors.As(err, &de) || de.Field != "end_time" {
		t.Fatalf("expected end_time to be required, got %v", err)
	}
}

func TestQueryHelpers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?court_id=x&date=2024-13-01", nil), httptest.NewRecorder())
	if _, err := queryUint(c, "court_id"); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("court_id: %v", err)
	}
	if _, err := queryDate(c, "date"); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("date: %v", err)
	}
	if n, err := queryUint(c, "missing"); err != nil || n != 0 {
		t.Fatalf("absent parameter: %d %v", n, err)
	}
}

func TestBindRejectsOversizedAmount(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"reservation_id":1,"amount":"184467440737095517"}`)
	var req paymentRequest
	err := bind(c, &req)
	var de *apperror.Error
	if !errors.As(err, &de) || de.Kind != apperror.KindValidation || !strings.Contains(de.Message, "999999.99") {
		t.Fatalf("expected a range validation error, got %v", err)
	}
}
