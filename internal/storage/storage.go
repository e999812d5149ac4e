// Package storage builds the repositories for the store selected in config.
package storage

import (
	bookingsrepo "studiobook/internal/bookings/repository"
	catalogrepo "studiobook/internal/catalog/repository"
	"studiobook/pkg/config"
	"studiobook/pkg/db/sqldb"
)

// Ledger returns the booking ledger backed by the connected store.
// cfg.SetStore must have been called.
func Ledger(cfg *config.Config) bookingsrepo.Ledger {
	if cfg.StoreDriver == config.StoreMongo {
		return bookingsrepo.NewMongoLedger(cfg)
	}
	return bookingsrepo.NewSQLLedger(txRunner(cfg))
}

// Catalog returns the catalog repository backed by the connected store.
func Catalog(cfg *config.Config) catalogrepo.CatalogRepository {
	if cfg.StoreDriver == config.StoreMongo {
		return catalogrepo.NewMongoCatalogRepository(cfg)
	}
	return catalogrepo.NewSQLCatalogRepository(txRunner(cfg))
}

func txRunner(cfg *config.Config) *sqldb.TxRunner {
	return sqldb.NewTxRunner(cfg.Client.SQL, cfg.Client.Dialect, cfg.LockPolicy())
}
