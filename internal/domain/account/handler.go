package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/users/login", h.Login)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	res, err := h.svc.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrNoPatientAccess):
		return echo.NewHTTPError(http.StatusBadRequest, "No patient access configured")
	case errors.Is(err, ErrUnsupportedRole):
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported role")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Str("username", req.Username).Msg("login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
}
