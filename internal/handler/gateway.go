package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"bff-gateway/internal/config"
	"bff-gateway/internal/model"
	"bff-gateway/internal/service"
)

// GatewayHandler adapts echo requests to the gateway pipeline.
type GatewayHandler struct {
	pipeline *service.Pipeline
	env      config.Env
	logger   *slog.Logger
}

// NewGatewayHandler creates a GatewayHandler. Upstream settings are read
// from env on every request.
func NewGatewayHandler(p *service.Pipeline, env config.Env, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		pipeline: p,
		env:      env,
		logger:   logger.With("component", "gateway_handler"),
	}
}

// Endpoint returns the echo handler serving ep.
func (h *GatewayHandler) Endpoint(ep *service.Endpoint) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		body, err := io.ReadAll(req.Body)
		if err != nil {
			h.logger.Error("reading request body", "err", err, "endpoint", ep.Name)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("read request body: %v", err),
			})
		}

		gr := &model.Request{
			Method:     req.Method,
			Path:       req.URL.Path,
			Header:     req.Header,
			Query:      req.URL.Query(),
			PathParams: pathParams(c, ep),
			Body:       body,
		}

		resp := h.pipeline.Handle(req.Context(), ep, config.ResolveUpstream(h.env), gr)
		return writeResponse(c, resp)
	}
}

// pathParams collects ep's path fields from the matched route.
func pathParams(c echo.Context, ep *service.Endpoint) map[string]string {
	params := make(map[string]string)
	for _, name := range ep.PathFields() {
		v := c.Param(name)
		if v == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		params[name] = v
	}
	return params
}

func writeResponse(c echo.Context, resp *model.Response) error {
	for k, v := range resp.Header {
		c.Response().Header().Set(k, v)
	}
	if resp.Body == "" {
		return c.NoContent(resp.StatusCode)
	}
	return c.Blob(resp.StatusCode, echo.MIMEApplicationJSON, []byte(resp.Body))
}
