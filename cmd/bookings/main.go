package main

import (
	"context"

	"studiobook/internal/bookings/handler"
	"studiobook/internal/bookings/service"
	"studiobook/internal/bookings/validator"
	"studiobook/internal/notify"
	"studiobook/internal/storage"
	"studiobook/pkg/app"
	"studiobook/pkg/config"
	"studiobook/pkg/tracing"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()

	cfg.Log.Info("Starting Bookings service")

	shutdownTracing, err := tracing.Init(context.Background(), ServiceName, cfg.OTelEndpoint)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize tracing", "error", err)
	}

	notifier, err := notify.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize notifier", "notifier", cfg.Notifier, "error", err)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Log, cfg.NotifyWorkers, cfg.NotifyQueueSize)

	bookingService := initServices(cfg, dispatcher)
	serverApp := app.NewApplication(cfg,
		app.OnShutdown(dispatcher.Close),
		app.OnShutdown(func(ctx context.Context) error { return shutdownTracing(ctx) }),
	)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, dispatcher service.EventDispatcher) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	ledger := storage.Ledger(cfg)
	bookingService := service.NewBookingService(
		ledger,
		bookingValidator,
		dispatcher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "store", cfg.StoreDriver, "notifier", cfg.Notifier)
	return bookingService
}
