package handler

import (
	"net/http"

	"github.com/abdusco/linkwatch/internal/health"
	"github.com/labstack/echo/v4"
)

type StatusHandler struct {
	probe *health.Probe
}

func NewStatusHandler(probe *health.Probe) *StatusHandler {
	return &StatusHandler{probe: probe}
}

// Status handles GET /api/status. It always answers 200; the body says what
// is unhealthy.
func (h *StatusHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.probe.Check(c.Request().Context()))
}
