package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/config"
	"rewards-ledger/internal/handler"
	"rewards-ledger/internal/metrics"
)

// RequestIDMiddleware tags every request with an X-Request-ID.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}

			ev := log.Info()
			if c.Response().Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			if id, ok := c.Get(handler.ContextAccountID).(int64); ok {
				ev = ev.Int64("account_id", id)
			}
			ev.
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("ip", c.RealIP()).
				Msg("HTTP request")
			return nil
		}
	}
}

// MetricsMiddleware records request counts and latencies by route.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				status = statusOfErr(err)
			}
			m.Request(c.Path(), c.Request().Method, status, time.Since(start))
			return err
		}
	}
}

func statusOfErr(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return handler.StatusOf(apperr.KindOf(err))
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("path", c.Path()).
						Msg("Recovered from panic in handler")
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}

// AuthMiddleware verifies HS256 bearer tokens and stores the subject as the account ID.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		NewClaimsFunc: func(echo.Context) jwt.Claims { return jwt.MapClaims{} },
		SuccessHandler: func(c echo.Context) {
			if id, err := subjectID(c); err == nil {
				c.Set(handler.ContextAccountID, id)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Debug().Err(err).Str("ip", c.RealIP()).Msg("Rejected token")
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
		},
	})
}

// subjectID reads the account ID from the sub claim, a number or a numeric string.
func subjectID(c echo.Context) (int64, error) {
	tok, ok := c.Get("user").(*jwt.Token)
	if !ok || tok == nil {
		return 0, fmt.Errorf("no token in context")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("unexpected claims type %T", tok.Claims)
	}

	switch sub := claims["sub"].(type) {
	case float64:
		return int64(sub), nil
	case string:
		return strconv.ParseInt(sub, 10, 64)
	default:
		return 0, fmt.Errorf("sub claim missing")
	}
}

// AdminMiddleware rejects accounts that are not configured admins.
func AdminMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := handler.AccountID(c)
			if err != nil {
				return err
			}
			if !cfg.IsAdmin(id) {
				log.Warn().
					Int64("account_id", id).
					Str("path", c.Path()).
					Msg("Non-admin attempted admin route")
				return echo.NewHTTPError(http.StatusForbidden, "admin permission required")
			}
			return next(c)
		}
	}
}
