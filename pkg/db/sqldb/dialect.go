package sqldb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name       string
	DriverName string

	TimestampType string
	DecimalType   string
}

func DialectFor(name string) (Dialect, error) {
	switch name {
	case SQLite:
		return Dialect{Name: SQLite, DriverName: "sqlite3", TimestampType: "DATETIME", DecimalType: "TEXT"}, nil
	case Postgres:
		return Dialect{Name: Postgres, DriverName: "postgres", TimestampType: "TIMESTAMPTZ", DecimalType: "NUMERIC(12,2)"}, nil
	case MySQL:
		return Dialect{Name: MySQL, DriverName: "mysql", TimestampType: "DATETIME(6)", DecimalType: "DECIMAL(12,2)"}, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql dialect: %s", name)
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if d.Name != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// InsertIgnore builds an insert that silently skips rows whose key already exists.
func (d Dialect) InsertIgnore(table string, columns []string, key string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	cols := strings.Join(columns, ", ")
	if d.Name == MySQL {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, cols, placeholders)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING", table, cols, placeholders, key)
}

// IsRetryable reports whether err is a lock or serialization conflict that
// may succeed when the whole transaction is replayed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}

	return false
}

// SupportsPartialIndex reports whether CREATE INDEX ... WHERE is available.
func (d Dialect) SupportsPartialIndex() bool {
	return d.Name != MySQL
}

// IsDuplicateIndex reports whether err is MySQL's "duplicate key name" on CREATE INDEX.
func IsDuplicateIndex(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1061
}

// IsUniqueViolation reports whether err is a primary key or unique index violation.
func IsUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
