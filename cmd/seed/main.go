package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/kmdb-api/internal/client"
	"github.com/Clark-Hu/kmdb-api/internal/logging"
	"github.com/Clark-Hu/kmdb-api/internal/seed"
)

func main() {
	var (
		api      = flag.String("api", "http://localhost:8080", "base URL of the running API")
		data     = flag.String("data", "db/seed/kmdb.yaml", "path to the fixture file")
		token    = flag.String("token", os.Getenv("AUTH_TOKEN"), "bearer token for write requests")
		timeout  = flag.Duration("timeout", 5*time.Second, "per-request timeout")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := logging.New(logging.Options{Name: "kmdb-seed", Level: *logLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fx, err := seed.Load(*data)
	if err != nil {
		logger.Error("load fixture", "error", err)
		os.Exit(1)
	}

	apiClient, err := client.NewHTTPClient(*api, *token, *timeout, logger.Named("client"))
	if err != nil {
		logger.Error("init api client", "error", err)
		os.Exit(1)
	}
	if err := apiClient.Health(ctx); err != nil {
		logger.Error("api is not healthy", "url", *api, "error", err)
		os.Exit(1)
	}

	res, err := seed.Apply(ctx, apiClient, fx, logger)
	if err != nil {
		logger.Error("seed failed", "result", res.String(), "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "created", res.Created, "skipped", res.Skipped)
}
