package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/http/viewmodels"
)

// HandleDashboard assembles the landing page summary: connector counts, the
// backend health widget, and the recent activity panel. Health is probed
// live; everything else comes from the snapshot.
func (h *Handlers) HandleDashboard(c *echo.Context) error {
	snap := h.Store.Snapshot()

	status, err := h.Gateway.Health(c.Request().Context())
	health := viewmodels.NewHealthView(status, err)

	data := viewmodels.NewDashboard(snap.Connectors, snap.ActivityLogs, snap.RefreshedAt, h.Cfg.MaxConnectors, health)
	return Respond(c, http.StatusOK, data)
}

// HandleActivity returns the recent activity panel. An optional limit query
// narrows the window further; it never widens past the stored slice.
func (h *Handlers) HandleActivity(c *echo.Context) error {
	snap := h.Store.Snapshot()
	logs := snap.ActivityLogs

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return BadRequest(c, "limit must be a non-negative integer")
		}
		if limit < len(logs) {
			logs = logs[:limit]
		}
	}
	return Respond(c, http.StatusOK, viewmodels.NewActivityItems(logs))
}

// HandleHealth probes both the management backend and the EDC control plane.
func (h *Handlers) HandleHealth(c *echo.Context) error {
	ctx := c.Request().Context()

	backend, backendErr := h.Gateway.Health(ctx)
	edcStatus, edcErr := h.Gateway.EDCHealth(ctx)

	return Respond(c, http.StatusOK, map[string]viewmodels.HealthViewData{
		"backend": viewmodels.NewHealthView(backend, backendErr),
		"edc":     viewmodels.NewHealthView(edcStatus, edcErr),
	})
}

// HandleDataspace serves the read-only federation settings.
func (h *Handlers) HandleDataspace(c *echo.Context) error {
	settings, err := h.Gateway.GetDataspace(c.Request().Context())
	if err != nil {
		return h.RespondError(c, err)
	}
	return Respond(c, http.StatusOK, settings)
}
