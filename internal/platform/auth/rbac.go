package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects requests whose token carries none of roles. Admin
// always passes. Anonymous requests get 401, others 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if UserIDFromContext(ctx) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, has := range RolesFromContext(ctx) {
				if has == RoleAdmin {
					return next(c)
				}
				for _, required := range roles {
					if has == required {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// BindCaller copies the token identity into the request's Caller so that
// handlers which never resolve a caller themselves still act as the token
// holder.
func BindCaller() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			uid := UserIDFromContext(ctx)
			if uid == "" {
				return next(c)
			}
			role := ""
			if roles := RolesFromContext(ctx); len(roles) > 0 {
				role = roles[0]
			}
			c.SetRequest(c.Request().WithContext(WithCaller(ctx, NewCaller(uid, "", role))))
			return next(c)
		}
	}
}
