package conversation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/platform/auth"
)

type Handler struct {
	bridge *Bridge
}

func NewHandler(b *Bridge) *Handler {
	return &Handler{bridge: b}
}

// RegisterRoutes mounts the chat endpoints under prefix, e.g. "/ask" or
// "/doctor/ask".
func (h *Handler) RegisterRoutes(g *echo.Group, prefix string) {
	g.POST(prefix, h.Ask)
	g.GET(prefix+"/history", h.History)
	g.GET(prefix+"/history/by_user", h.HistoryByUser)
}

func (h *Handler) Ask(c echo.Context) error {
	var in AskInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		in.UserName = uid
		in.Verified = true
	}

	res, err := h.bridge.Ask(ctx, in)
	if err != nil {
		var engineErr *EngineError
		switch {
		case errors.Is(err, ErrEmptyPrompt):
			return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
		case errors.Is(err, ErrSessionOwner):
			return echo.NewHTTPError(http.StatusForbidden, "session_id belongs to another user")
		case errors.As(err, &engineErr):
			return echo.NewHTTPError(http.StatusBadGateway, "assistant is unavailable, please try again")
		default:
			zerolog.Ctx(ctx).Error().Err(err).Msg("ask failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c echo.Context) error {
	sessionID := strings.TrimSpace(c.QueryParam("session_id"))
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	items, err := h.bridge.History(c.Request().Context(), sessionID)
	if err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("load history failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No history for session_id")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"history":    items,
	})
}

func (h *Handler) HistoryByUser(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	res, err := h.bridge.HistoryByUser(c.Request().Context(), userID)
	if err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("load user history failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if len(res.Sessions) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No history for user")
	}
	return c.JSON(http.StatusOK, res)
}
