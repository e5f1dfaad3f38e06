package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"pgregory.net/rapid"

	"rewards-ledger/internal/config"
	"rewards-ledger/internal/handler"
)

// TestAdminMiddlewareProperty checks that an account passes the admin
// middleware if and only if its ID is configured as an admin.
func TestAdminMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(t, "adminIDs")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		var accountID int64
		if rapid.Bool().Draw(t, "pickAdmin") {
			accountID = rapid.SampledFrom(adminIDs).Draw(t, "admin")
		} else {
			accountID = rapid.Int64Range(1, 1000000000).Draw(t, "accountID")
		}

		expectAdmin := false
		for _, id := range adminIDs {
			if id == accountID {
				expectAdmin = true
				break
			}
		}

		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/admin/x", nil), httptest.NewRecorder())
		c.Set(handler.ContextAccountID, accountID)

		called := false
		err := AdminMiddleware(cfg)(func(echo.Context) error {
			called = true
			return nil
		})(c)

		if called != expectAdmin {
			t.Fatalf("accountID=%d adminIDs=%v: expected admin=%v, handler called=%v", accountID, adminIDs, expectAdmin, called)
		}
		if !expectAdmin {
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %v", err)
			}
		}
	})
}

// TestAdminMiddlewareRequiresAccount checks that a request without an
// authenticated account is rejected as unauthenticated.
func TestAdminMiddlewareRequiresAccount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 0, 5).Draw(t, "adminIDs")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/admin/x", nil), httptest.NewRecorder())

		err := AdminMiddleware(cfg)(func(echo.Context) error {
			t.Fatalf("handler must not run")
			return nil
		})(c)

		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}
