package action

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthline/healthline/internal/platform/auth"
)

// Handler exposes the dispatchers over HTTP for administrators. Failures
// inside a dispatcher are part of the Result and still answer 200.
type Handler struct {
	registry *Registry
}

func NewHandler(r *Registry) *Handler {
	return &Handler{registry: r}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("", auth.RequireRole(auth.RoleAdmin), auth.BindCaller())
	admin.POST("/actions/:tool", h.Run)
	admin.GET("/actions", h.ListTools)
}

type runRequest struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

func (h *Handler) Run(c echo.Context) error {
	d, ok := h.registry.Lookup(c.Param("tool"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown tool: "+c.Param("tool"))
	}
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, d.Dispatch(c.Request().Context(), req.Action, req.Payload))
}

type toolInfo struct {
	Tool        string   `json:"tool"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

func (h *Handler) ListTools(c echo.Context) error {
	out := make([]toolInfo, 0, len(h.registry.order))
	for _, d := range h.registry.Dispatchers() {
		out = append(out, toolInfo{Tool: d.Tool(), Description: d.Description(), Actions: d.Actions()})
	}
	return c.JSON(http.StatusOK, out)
}
