package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"bff-gateway/internal/client"
	"bff-gateway/internal/config"
	"bff-gateway/internal/handler"
	"bff-gateway/internal/metrics"
	"bff-gateway/internal/middleware"
	"bff-gateway/internal/service"
	"bff-gateway/internal/telemetry"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("bff-gateway"),
		kong.Description("Backend-for-frontend gateway in front of the private REST API."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	if err := config.LoadEnvFile(cli.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			newEcho,
			newEnv,
			metrics.New,
			fx.Annotate(client.NewUpstreamClient, fx.As(new(service.Upstream))),
			newPipeline,
			newRouter,
			handler.NewGatewayHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startTracing, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	return cfg.NewLogger("bff-gateway")
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 30 * time.Second
	// Upstream calls are bounded by the client timeout; leave headroom for writing.
	e.Server.WriteTimeout = time.Duration(cfg.Upstream.TimeoutSeconds+15) * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.HTTPErrorHandler = handler.ErrorHandler(corsFromConfig(cfg), logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	return e
}

// newEnv layers the process environment over the [upstream] config table.
func newEnv(cfg *config.Config) config.Env {
	return cfg.UpstreamEnv()
}

func newPipeline(up service.Upstream, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *service.Pipeline {
	observers := service.Observers{service.NewLogObserver(logger)}
	if cfg.Metrics.Enabled {
		observers = append(observers, m)
	}
	return service.NewPipeline(up, corsFromConfig(cfg), observers)
}

func corsFromConfig(cfg *config.Config) service.CORS {
	return service.CORS{
		AllowOrigin:  cfg.CORS.AllowOrigin,
		AllowHeaders: cfg.CORS.AllowHeaders,
	}
}

func newRouter() *service.Router {
	return service.NewRouter(service.Endpoints())
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startTracing(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Tracing.Enabled {
		return nil
	}
	shutdown, err := telemetry.InitTracer(cfg.Tracing.ServiceName, nil, logger)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return nil
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
