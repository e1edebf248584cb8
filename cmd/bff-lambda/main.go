package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"bff-gateway/internal/client"
	"bff-gateway/internal/config"
	"bff-gateway/internal/lambda"
	"bff-gateway/internal/service"
	"bff-gateway/internal/telemetry"
)

// Set by goreleaser ldflags.
var version = "dev"

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("bff-lambda"),
		kong.Description("Backend-for-frontend gateway as an API Gateway Lambda handler."),
		kong.Vars{"version": version},
	)

	if err := run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cli *config.CLI) error {
	if err := config.LoadEnvFile(cli.EnvFile); err != nil {
		return err
	}

	cfg, err := config.Load(cli)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger("bff-lambda")

	var opts []awslambda.Option
	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Tracing.ServiceName, nil, logger)
		if err != nil {
			return err
		}
		opts = append(opts, awslambda.WithEnableSIGTERM(func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("tracer shutdown", "err", err)
			}
		}))
	}

	uc := client.NewUpstreamClient(cfg, logger, nil)
	p := service.NewPipeline(uc, service.CORS{
		AllowOrigin:  cfg.CORS.AllowOrigin,
		AllowHeaders: cfg.CORS.AllowHeaders,
	}, service.NewLogObserver(logger))

	// Lambda configuration comes from the function environment only.
	adapter, err := lambda.NewAdapter(p, service.NewRouter(service.Endpoints()), config.ProcessEnv{}, cfg.Endpoint(), logger)
	if err != nil {
		return err
	}

	logger.Info("starting lambda handler", "version", version, "endpoint", cfg.Endpoint())
	awslambda.StartWithOptions(adapter.Handle, opts...)
	return nil
}
