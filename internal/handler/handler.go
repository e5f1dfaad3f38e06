// Package handler provides the HTTP handlers of the rewards ledger API.
// Handlers bind and validate requests, call one service operation and render its result.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"rewards-ledger/internal/apperr"
)

// ContextAccountID is the echo context key holding the authenticated account ID.
const ContextAccountID = "account_id"

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	if err := v.v.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validationf("field %s failed %s validation", fe.Field(), fe.Tag())
		}
		return apperr.Validationf("invalid request: %v", err)
	}
	return nil
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusOf maps an error kind to an HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.AlreadyUsed:
		return http.StatusConflict
	case apperr.InsufficientBalance:
		return http.StatusUnprocessableEntity
	case apperr.Authentication:
		return http.StatusUnauthorized
	case apperr.ConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders handler errors. Domain errors keep their code and
// message; anything unclassified becomes a generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := ErrorResponse{Error: apperr.Internal.String(), Message: "internal error"}

	var (
		ae *apperr.Error
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ae):
		status = StatusOf(ae.Kind)
		if ae.Kind != apperr.Internal {
			body = ErrorResponse{Error: ae.Code, Message: ae.Message}
		}
	case errors.As(err, &he):
		status = he.Code
		body = ErrorResponse{Error: http.StatusText(he.Code), Message: http.StatusText(he.Code)}
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("Request failed")
	}

	if status == http.StatusConflict && apperr.KindOf(err) == apperr.ConcurrencyConflict {
		c.Response().Header().Set("Retry-After", "1")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		log.Error().Err(werr).Msg("Failed to write error response")
	}
}

// AccountID returns the authenticated account ID.
func AccountID(c echo.Context) (int64, error) {
	id, ok := c.Get(ContextAccountID).(int64)
	if !ok || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return id, nil
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	return c.Validate(req)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return n, nil
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func list[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, listResponse[T]{Data: items})
}
