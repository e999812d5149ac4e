package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"studiobook/pkg/db/sqldb"
)

type index struct {
	name    string
	table   string
	columns string
	where   string
	unique  bool
}

var indexes = []index{
	{name: "idx_occurrences_starts_at", table: "occurrences", columns: "starts_at"},
	{name: "idx_bookings_occurrence_status", table: "bookings", columns: "occurrence_id, status"},
	{name: "idx_bookings_user_starts", table: "bookings", columns: "user_id, starts_at"},
	{name: "idx_bookings_trainer_starts", table: "bookings", columns: "trainer_id, starts_at"},
	{name: "idx_history_booking", table: "booking_status_history", columns: "booking_id, changed_at"},
	{name: "idx_trainer_availability_trainer", table: "trainer_availability", columns: "trainer_id, weekday"},
	{
		name:    "uq_bookings_active_user_occurrence",
		table:   "bookings",
		columns: "user_id, occurrence_id",
		where:   "status IN ('confirmed', 'wait_listed') AND occurrence_id IS NOT NULL",
		unique:  true,
	},
}

// Tables returns the CREATE TABLE statements for the dialect.
func Tables(d sqldb.Dialect) []string {
	ts := d.TimestampType
	dec := d.DecimalType

	return []string{
		`CREATE TABLE IF NOT EXISTS occurrences (
			id VARCHAR(64) PRIMARY KEY,
			class_template_id VARCHAR(64) NOT NULL DEFAULT '',
			class_name VARCHAR(100) NOT NULL,
			class_type VARCHAR(50) NOT NULL,
			level VARCHAR(20) NOT NULL,
			starts_at ` + ts + ` NOT NULL,
			ends_at ` + ts + ` NOT NULL,
			room VARCHAR(50) NOT NULL DEFAULT '',
			instructor_id VARCHAR(64) NOT NULL,
			max_capacity INTEGER NOT NULL CHECK (max_capacity > 0),
			lock_version BIGINT NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trainers (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			hourly_rate ` + dec + ` NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trainer_availability (
			trainer_id VARCHAR(64) NOT NULL REFERENCES trainers(id),
			weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
			start_clock CHAR(5) NOT NULL,
			end_clock CHAR(5) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id VARCHAR(64) PRIMARY KEY,
			booking_type VARCHAR(20) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			occurrence_id VARCHAR(64) NULL,
			trainer_id VARCHAR(64) NULL,
			starts_at ` + ts + ` NOT NULL,
			ends_at ` + ts + ` NOT NULL,
			session_type VARCHAR(50) NOT NULL DEFAULT '',
			location VARCHAR(100) NOT NULL DEFAULT '',
			notes VARCHAR(500) NOT NULL DEFAULT '',
			price ` + dec + ` NULL,
			status VARCHAR(20) NOT NULL,
			waitlist_position INTEGER NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL,
			cancelled_at ` + ts + ` NULL,
			cancellation_reason VARCHAR(500) NOT NULL DEFAULT '',
			cancelled_by VARCHAR(64) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS booking_status_history (
			id VARCHAR(64) PRIMARY KEY,
			booking_id VARCHAR(64) NOT NULL,
			from_status VARCHAR(20) NOT NULL DEFAULT '',
			to_status VARCHAR(20) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			reason VARCHAR(500) NOT NULL DEFAULT '',
			changed_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS slot_locks (
			lock_key VARCHAR(128) PRIMARY KEY,
			version BIGINT NOT NULL DEFAULT 0,
			updated_at ` + ts + ` NOT NULL
		)`,
	}
}

// Indexes returns the CREATE INDEX statements the dialect supports.
func Indexes(d sqldb.Dialect) []string {
	var stmts []string
	for _, idx := range indexes {
		if idx.where != "" && !d.SupportsPartialIndex() {
			continue
		}

		var b strings.Builder
		b.WriteString("CREATE ")
		if idx.unique {
			b.WriteString("UNIQUE ")
		}
		b.WriteString("INDEX ")
		if d.Name != sqldb.MySQL {
			b.WriteString("IF NOT EXISTS ")
		}
		fmt.Fprintf(&b, "%s ON %s (%s)", idx.name, idx.table, idx.columns)
		if idx.where != "" {
			b.WriteString(" WHERE " + idx.where)
		}
		stmts = append(stmts, b.String())
	}
	return stmts
}

// RunMigration creates the schema. It is safe to run repeatedly.
func RunMigration(ctx context.Context, db *sql.DB, d sqldb.Dialect) error {
	for _, stmt := range Tables(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, stmt := range Indexes(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if sqldb.IsDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
