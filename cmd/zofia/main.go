package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/zofia/dashboard"
	"github.com/kbukum/zofia/logger"
	"github.com/kbukum/zofia/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := dashboard.Load()
	if err != nil {
		logger.GetGlobalLogger().WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	app, err := dashboard.New(cfg)
	if err != nil {
		logger.GetGlobalLogger().WithError(err).Error("failed to assemble dashboard")
		os.Exit(1)
	}

	ctx := context.Background()
	log := logger.Get("main")
	log.Info("starting", logger.Fields("version", version.Short()))

	if err := app.StartObservability(ctx); err != nil {
		log.WithError(err).Warn("observability disabled")
	}
	app.ServeStatus()

	// The dashboard is usable offline; a failed dial is reported, not fatal.
	if err := app.Connect(ctx); err != nil {
		log.WithError(err).Warn("server connection failed", logger.Fields(
			"endpoint", cfg.Server.Endpoint(),
		))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", logger.Fields("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
}
