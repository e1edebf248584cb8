package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bff-gateway/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	env     config.Env
	version Version
}

// NewHealthHandler creates a HealthHandler reporting on the upstream settings in env.
func NewHealthHandler(env config.Env, v Version) *HealthHandler {
	return &HealthHandler{env: env, version: v}
}

// Healthz returns a simple OK response for liveness checks.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the build version and whether the upstream settings resolve.
// The API key itself is never returned.
func (h *HealthHandler) Status(c echo.Context) error {
	up := config.ResolveUpstream(h.env)

	status := "ok"
	if config.ValidateUpstream(up) != nil {
		status = "misconfigured"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":             status,
		"version":            string(h.version),
		"upstream_url":       up.BaseURL,
		"api_key_configured": up.APIKey != "",
	})
}
