package main

import (
	"context"
	"os/signal"
	"syscall"

	"studiobook/internal/bookings/service"
	"studiobook/internal/bookings/validator"
	"studiobook/internal/notify"
	"studiobook/internal/storage"
	"studiobook/pkg/config"
	"studiobook/pkg/tracing"
)

const JobName = "completion-sweeper"

func main() {
	cfg := config.Load(JobName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, JobName, cfg.OTelEndpoint)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize tracing", "error", err)
	}

	notifier, err := notify.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize notifier", "notifier", cfg.Notifier, "error", err)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Log, cfg.NotifyWorkers, cfg.NotifyQueueSize)

	bookingService := service.NewBookingService(
		storage.Ledger(cfg),
		validator.NewBookingValidator(cfg.Log),
		dispatcher,
		cfg,
	)

	service.NewSweeper(bookingService, cfg.SweepInterval, cfg.Log).Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		cfg.Log.Error("Failed to drain notifications", "error", err)
	}
	if err := shutdownTracing(drainCtx); err != nil {
		cfg.Log.Error("Failed to flush traces", "error", err)
	}
}
