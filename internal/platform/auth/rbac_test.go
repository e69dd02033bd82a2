package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithToken(req *http.Request, uid string, roles ...string) *http.Request {
	ctx := context.WithValue(req.Context(), UserIDKey, uid)
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	return req.WithContext(ctx)
}

func TestRequireRole_Allowed(t *testing.T) {
	e := echo.New()
	req := contextWithToken(httptest.NewRequest(http.MethodGet, "/", nil), "dr", RoleDoctor)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := RequireRole(RoleDoctor)(okHandler)(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_AdminAlwaysPasses(t *testing.T) {
	e := echo.New()
	req := contextWithToken(httptest.NewRequest(http.MethodGet, "/", nil), "root", RoleAdmin)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := RequireRole(RoleDoctor)(okHandler)(c); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	e := echo.New()
	req := contextWithToken(httptest.NewRequest(http.MethodGet, "/", nil), "p", RolePatient)
	c := e.NewContext(req, httptest.NewRecorder())

	err := RequireRole(RoleAdmin)(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := RequireRole(RoleAdmin)(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestBindCaller(t *testing.T) {
	e := echo.New()
	req := contextWithToken(httptest.NewRequest(http.MethodGet, "/", nil), "dr.who", RoleDoctor)
	c := e.NewContext(req, httptest.NewRecorder())

	var got Caller
	h := BindCaller()(func(c echo.Context) error {
		got = CallerFromContext(c.Request().Context())
		return nil
	})
	_ = h(c)
	if got.UserName != "dr.who" || got.Role != RoleDoctor {
		t.Errorf("unexpected caller %+v", got)
	}
}
