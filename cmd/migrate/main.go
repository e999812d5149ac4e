package main

import (
	"context"
	"time"

	mongoMigration "studiobook/internal/migrations/mongo"
	sqlMigration "studiobook/internal/migrations/sql"
	"studiobook/pkg/config"
)

const (
	JobName        = "store-migration"
	migrateTimeout = 120 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetStore()

	cfg.Log.Info("Starting migration job", "store", cfg.StoreDriver)
	err := migrate(ctx, cfg)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Migration failed", "store", cfg.StoreDriver, "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreMongo {
		return mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	}
	return sqlMigration.RunMigration(ctx, cfg.Client.SQL, cfg.Client.Dialect)
}
