// Package records holds the row and document shapes shared by the booking
// ledger and the schedule catalog stores.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"studiobook/pkg/db/sqldb"
	"studiobook/pkg/model"
)

const (
	BookingColumns = `id, booking_type, user_id, occurrence_id, trainer_id, starts_at, ends_at,
		session_type, location, notes, price, status, waitlist_position, created_at, updated_at,
		cancelled_at, cancellation_reason, cancelled_by`

	OccurrenceColumns = `id, class_template_id, class_name, class_type, level, starts_at, ends_at,
		room, instructor_id, max_capacity, created_at`
)

// QualifiedOccurrenceColumns prefixes OccurrenceColumns with a table alias.
func QualifiedOccurrenceColumns(alias string) string {
	cols := strings.Split(OccurrenceColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type RowScanner interface {
	Scan(dest ...any) error
}

// ScanOccurrence scans OccurrenceColumns followed by any extra selected columns.
func ScanOccurrence(s RowScanner, extra ...any) (*model.Occurrence, error) {
	var o model.Occurrence
	dest := []any{&o.ID, &o.ClassTemplateID, &o.ClassName, &o.ClassType, &o.Level, &o.StartsAt, &o.EndsAt,
		&o.Room, &o.InstructorID, &o.MaxCapacity, &o.CreatedAt}
	err := s.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}
	o.StartsAt = o.StartsAt.UTC()
	o.EndsAt = o.EndsAt.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func ScanBooking(s RowScanner) (*model.Booking, error) {
	var (
		b            model.Booking
		occurrenceID sql.NullString
		trainerID    sql.NullString
		price        decimal.NullDecimal
		position     sql.NullInt64
		cancelledAt  sql.NullTime
	)

	err := s.Scan(&b.ID, &b.Type, &b.UserID, &occurrenceID, &trainerID, &b.StartsAt, &b.EndsAt,
		&b.SessionType, &b.Location, &b.Notes, &price, &b.Status, &position, &b.CreatedAt, &b.UpdatedAt,
		&cancelledAt, &b.CancellationReason, &b.CancelledBy)
	if err != nil {
		return nil, err
	}

	b.OccurrenceID = occurrenceID.String
	b.TrainerID = trainerID.String
	if price.Valid {
		p := price.Decimal
		b.Price = &p
	}
	if position.Valid {
		p := int(position.Int64)
		b.WaitlistPosition = &p
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		b.CancelledAt = &at
	}
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// QueryBookings runs a query selecting BookingColumns and scans every row.
func QueryBookings(ctx context.Context, q Querier, query string, args ...any) ([]*model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := ScanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// LoadTrainer reads a trainer with its weekly windows. It returns
// sql.ErrNoRows when the trainer does not exist.
func LoadTrainer(ctx context.Context, q Querier, d sqldb.Dialect, trainerID string) (*model.Trainer, error) {
	var t model.Trainer
	err := q.QueryRowContext(ctx, d.Rebind("SELECT id, name, hourly_rate, created_at, updated_at FROM trainers WHERE id = ?"), trainerID).
		Scan(&t.ID, &t.Name, &t.HourlyRate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	rows, err := q.QueryContext(ctx, d.Rebind(`SELECT weekday, start_clock, end_clock FROM trainer_availability
		WHERE trainer_id = ? ORDER BY weekday, start_clock`), trainerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trainer availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w model.AvailabilityWindow
		var weekday int
		if err := rows.Scan(&weekday, &w.Start, &w.End); err != nil {
			return nil, fmt.Errorf("failed to scan trainer availability: %w", err)
		}
		w.Weekday = time.Weekday(weekday)
		t.Availability = append(t.Availability, w)
	}
	return &t, rows.Err()
}

func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func NullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func NullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func NullDecimal(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}
