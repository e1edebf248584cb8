package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"bff-gateway/internal/service"
)

// ErrorHandler returns an echo.HTTPErrorHandler that writes framework errors
// (body limit, unknown route, recovered panics) in the gateway's
// {"error": ...} envelope with the default CORS headers.
func ErrorHandler(cors service.CORS, logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal gateway error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			message = httpErrorMessage(he)
		} else {
			logger.Error("unhandled error", "err", err, "path", c.Request().URL.Path)
		}

		h := c.Response().Header()
		for k, v := range cors.BaseHeaders() {
			h.Set(k, v)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]string{"error": message})
		}
		if werr != nil {
			logger.Error("writing error response", "err", werr)
		}
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
