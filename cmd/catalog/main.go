package main

import (
	"context"

	"studiobook/internal/catalog/handler"
	"studiobook/internal/catalog/service"
	"studiobook/internal/catalog/validator"
	"studiobook/internal/storage"
	"studiobook/pkg/app"
	"studiobook/pkg/config"
	"studiobook/pkg/tracing"
)

const ServiceName = "catalog"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()

	cfg.Log.Info("Starting Catalog service")

	shutdownTracing, err := tracing.Init(context.Background(), ServiceName, cfg.OTelEndpoint)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize tracing", "error", err)
	}

	catalogService := service.NewCatalogService(
		storage.Catalog(cfg),
		validator.NewCatalogValidator(cfg.Log),
		cfg,
	)
	cfg.Log.Info("Catalog service initialized", "store", cfg.StoreDriver)

	serverApp := app.NewApplication(cfg,
		app.WithPublicReads(),
		app.OnShutdown(func(ctx context.Context) error { return shutdownTracing(ctx) }),
	)
	serverApp.SetApp(handler.NewCatalogHandler(catalogService, cfg.Log))
	serverApp.Run()
}
