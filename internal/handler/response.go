package handler // handler defines the HTTP surface over the ledger services

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-ledger/internal/middleware"
	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/service"
)

// Envelope is the body of every ledger response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// LedgerHandler exposes the ledger services over HTTP.  All methods assume
// JWTAuth and RequireRole already ran for protected routes.
type LedgerHandler struct {
	Ledger *service.Ledger
	Log    *slog.Logger

	// OnPlansChanged runs after an admin changed a plan, e.g. to purge the
	// response cache.
	OnPlansChanged func(c echo.Context)
}

// NewLedgerHandler panics when the ledger is missing.
func NewLedgerHandler(l *service.Ledger, log *slog.Logger) *LedgerHandler {
	if l == nil {
		panic("nil ledger passed to NewLedgerHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LedgerHandler{Ledger: l, Log: log}
}

func ok(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: msg, Data: data})
}

func bad(c echo.Context, msg string, fields ...service.FieldError) error {
	env := Envelope{Message: msg}
	if len(fields) > 0 {
		env.Errors = fields
	}
	return c.JSON(http.StatusBadRequest, env)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindConflict, service.KindInsufficientFunds:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindIntegrity:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail answers with the error's kind.  System failures are logged with the
// request id and answered with a generic message.
func (h *LedgerHandler) fail(c echo.Context, err error) error {
	kind := service.KindOf(err)
	status := statusFor(kind)
	env := Envelope{Message: err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		env.Errors = ve.Fields
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed",
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
		env.Message = "internal server error"
		env.Errors = nil
	}
	return c.JSON(status, env)
}

// getUserID returns the caller; JWTAuth guarantees it on protected routes.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

func actorOf(c echo.Context) (service.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{UserID: id, Admin: middleware.Role(c) == model.RoleAdmin}, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, Envelope{Message: "unauthorized"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseDate parses a YYYY-MM-DD calendar date.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, s)
	return t, err == nil
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}
