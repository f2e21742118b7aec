package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/kmdb-api/db"
	"github.com/Clark-Hu/kmdb-api/internal/config"
	httpserver "github.com/Clark-Hu/kmdb-api/internal/http"
	"github.com/Clark-Hu/kmdb-api/internal/logging"
	"github.com/Clark-Hu/kmdb-api/internal/repository"
	"github.com/Clark-Hu/kmdb-api/internal/service"
	"github.com/Clark-Hu/kmdb-api/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{Name: "kmdb-api"}).Error("config error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Name: "kmdb-api", Level: cfg.LogLevel, JSON: cfg.LogJSON})

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger.Named("store"),
	}
	if cfg.DBAutoMigrate {
		storeOpts.Migrations = db.Migrations
	}

	st, err := store.Open(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	repo := repository.New(st)
	services := service.New(repo, logger.Named("service"), service.Options{MaxPageSize: cfg.MaxPageSize})
	server := httpserver.New(cfg, st, services, logger.Named("http"))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", "error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", "error", err)
	}
}
