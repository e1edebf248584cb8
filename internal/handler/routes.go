package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bff-gateway/internal/config"
	"bff-gateway/internal/metrics"
	"bff-gateway/internal/service"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Gateway
// routes accept any method so the pipeline can answer preflight and 405 itself.
func RegisterRoutes(e *echo.Echo, router *service.Router, gw *GatewayHandler, health *HealthHandler, cfg *config.Config, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	for _, ep := range router.Endpoints() {
		h := gw.Endpoint(ep)
		e.Any(ep.BasePath(), h)
		if ep.Route() != ep.BasePath() {
			e.Any(ep.Route(), h)
		}
	}

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
