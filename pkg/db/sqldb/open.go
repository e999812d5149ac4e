package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to the engine named by dialect and applies the settings the
// scoped transactions rely on.
func Open(ctx context.Context, dialectName, dsn string, maxOpenConns int) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(dialectName)
	if err != nil {
		return nil, Dialect{}, err
	}

	dsn, err = normalizeDSN(dialect, dsn)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("failed to open %s: %w", dialect.Name, err)
	}

	if dialect.Name == SQLite {
		// one writer; BEGIN IMMEDIATE on a single connection serializes scopes
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(max(1, maxOpenConns/2))
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("failed to ping %s: %w", dialect.Name, err)
	}

	return db, dialect, nil
}

func normalizeDSN(d Dialect, dsn string) (string, error) {
	switch d.Name {
	case SQLite:
		params := []string{"_txlock=immediate", "_busy_timeout=5000", "_journal_mode=WAL", "_foreign_keys=on"}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + strings.Join(params, "&"), nil
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	}
	return dsn, nil
}
