package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/calendar-sync/internal/config"
	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/logging"
	"github.com/example/calendar-sync/internal/persistence"
	"github.com/example/calendar-sync/internal/server"
)

func main() {
	cfg, err := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	snapshot := persistence.NewSnapshotFile(cfg.Server.SnapshotPath(), logger)
	store := server.NewStore(snapshot, logger)
	if err := store.Load(ctx); err != nil {
		logger.Error("failed to load shared events", "error", err)
		os.Exit(1)
	}

	registry := server.NewRegistry(logger)
	handler := server.NewHandler(registry, store, event.NewIDGenerator(time.Now), time.Now, logger)
	srv := server.New(cfg.Server.ListenAddr(), handler, logger)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}

	// Every mutation already persisted, but a final rewrite on graceful stop
	// keeps the snapshot current even after a persistence failure mid-run.
	store.Save(context.Background())
	logger.Info("server stopped")
}
