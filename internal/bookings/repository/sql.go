package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/records"
	"studiobook/pkg/db/sqldb"
	"studiobook/pkg/model"
)

type sqlLedger struct {
	runner  *sqldb.TxRunner
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewSQLLedger(runner *sqldb.TxRunner) Ledger {
	return &sqlLedger{
		runner:  runner,
		db:      runner.DB(),
		dialect: runner.Dialect(),
	}
}

func (l *sqlLedger) q(query string) string {
	return l.dialect.Rebind(query)
}

func (l *sqlLedger) InOccurrenceScope(ctx context.Context, occurrenceID string, fn OccurrenceScopeFunc) error {
	return l.runner.InTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, l.q("UPDATE occurrences SET lock_version = lock_version + 1 WHERE id = ?"), occurrenceID)
		if err != nil {
			return fmt.Errorf("failed to lock occurrence: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to lock occurrence: %w", err)
		}
		if n == 0 {
			return bookingserrors.ErrOccurrenceNotFound
		}

		occ, err := records.ScanOccurrence(tx.QueryRowContext(ctx, l.q("SELECT "+records.OccurrenceColumns+" FROM occurrences WHERE id = ?"), occurrenceID))
		if err != nil {
			return fmt.Errorf("failed to load occurrence: %w", err)
		}

		return fn(ctx, &sqlTx{tx: tx, ledger: l}, occ)
	})
}

func (l *sqlLedger) InTrainerScope(ctx context.Context, trainerID string, day time.Time, fn TrainerScopeFunc) error {
	key := TrainerLockKey(trainerID, day)

	return l.runner.InTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		now := time.Now().UTC()
		insert := l.dialect.InsertIgnore("slot_locks", []string{"lock_key", "version", "updated_at"}, "lock_key")
		if _, err := tx.ExecContext(ctx, l.q(insert), key, 0, now); err != nil {
			return fmt.Errorf("failed to create slot lock: %w", err)
		}
		if _, err := tx.ExecContext(ctx, l.q("UPDATE slot_locks SET version = version + 1, updated_at = ? WHERE lock_key = ?"), now, key); err != nil {
			return fmt.Errorf("failed to lock trainer day: %w", err)
		}

		trainer, err := records.LoadTrainer(ctx, tx, l.dialect, trainerID)
		if errors.Is(err, sql.ErrNoRows) {
			return bookingserrors.ErrTrainerNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load trainer: %w", err)
		}

		return fn(ctx, &sqlTx{tx: tx, ledger: l}, trainer)
	})
}

func (l *sqlLedger) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := records.ScanBooking(l.db.QueryRowContext(ctx, l.q("SELECT "+records.BookingColumns+" FROM bookings WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bookingserrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, l.q(`SELECT from_status, to_status, actor_id, reason, changed_at
		FROM booking_status_history WHERE booking_id = ? ORDER BY changed_at ASC`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.StatusChange
		if err := rows.Scan(&c.From, &c.To, &c.ActorID, &c.Reason, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan booking history: %w", err)
		}
		c.At = c.At.UTC()
		b.History = append(b.History, c)
	}
	return b, rows.Err()
}

func (l *sqlLedger) FindByUser(ctx context.Context, userID string, scope model.BookingScope, now time.Time) ([]*model.Booking, error) {
	query := "SELECT " + records.BookingColumns + " FROM bookings WHERE user_id = ? AND ends_at > ? ORDER BY starts_at ASC"
	if scope == model.ScopePast {
		query = "SELECT " + records.BookingColumns + " FROM bookings WHERE user_id = ? AND ends_at <= ? ORDER BY starts_at DESC"
	}
	return l.queryBookings(ctx, l.db, query, userID, now.UTC())
}

func (l *sqlLedger) FindElapsed(ctx context.Context, endedBefore time.Time, limit int) ([]*model.Booking, error) {
	query := "SELECT " + records.BookingColumns + " FROM bookings WHERE status = ? AND ends_at <= ? ORDER BY ends_at ASC LIMIT ?"
	return l.queryBookings(ctx, l.db, query, model.StatusConfirmed, endedBefore.UTC(), limit)
}

func (l *sqlLedger) queryBookings(ctx context.Context, q records.Querier, query string, args ...any) ([]*model.Booking, error) {
	return records.QueryBookings(ctx, q, l.q(query), args...)
}

type sqlTx struct {
	tx     *sql.Tx
	ledger *sqlLedger
}

func (t *sqlTx) q(query string) string {
	return t.ledger.q(query)
}

func (t *sqlTx) FindBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := records.ScanBooking(t.tx.QueryRowContext(ctx, t.q("SELECT "+records.BookingColumns+" FROM bookings WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bookingserrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}

func (t *sqlTx) HasActiveBooking(ctx context.Context, occurrenceID, userID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, t.q(`SELECT COUNT(*) FROM bookings
		WHERE occurrence_id = ? AND user_id = ? AND status IN (?, ?)`),
		occurrenceID, userID, model.StatusConfirmed, model.StatusWaitListed).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check active booking: %w", err)
	}
	return n > 0, nil
}

func (t *sqlTx) CountByStatus(ctx context.Context, occurrenceID string, status model.BookingStatus) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, t.q("SELECT COUNT(*) FROM bookings WHERE occurrence_id = ? AND status = ?"),
		occurrenceID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s bookings: %w", status, err)
	}
	return n, nil
}

func (t *sqlTx) NextWaitlistPosition(ctx context.Context, occurrenceID string) (int, error) {
	var last int
	err := t.tx.QueryRowContext(ctx, t.q(`SELECT COALESCE(MAX(waitlist_position), 0) FROM bookings
		WHERE occurrence_id = ? AND status = ?`), occurrenceID, model.StatusWaitListed).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to read waitlist position: %w", err)
	}
	return last + 1, nil
}

func (t *sqlTx) OldestWaitListed(ctx context.Context, occurrenceID string) (*model.Booking, error) {
	b, err := records.ScanBooking(t.tx.QueryRowContext(ctx, t.q("SELECT "+records.BookingColumns+` FROM bookings
		WHERE occurrence_id = ? AND status = ?
		ORDER BY waitlist_position ASC, created_at ASC LIMIT 1`), occurrenceID, model.StatusWaitListed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bookingserrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find waitlisted booking: %w", err)
	}
	return b, nil
}

func (t *sqlTx) TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]*model.Booking, error) {
	query := "SELECT " + records.BookingColumns + ` FROM bookings
		WHERE trainer_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?
		ORDER BY starts_at ASC`
	return t.ledger.queryBookings(ctx, t.tx, query, trainerID, model.StatusCancelled, to.UTC(), from.UTC())
}

func (t *sqlTx) Insert(ctx context.Context, b *model.Booking, change model.StatusChange) error {
	if err := prepareInsert(b, &change); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	_, err := t.tx.ExecContext(ctx, t.q("INSERT INTO bookings ("+records.BookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.ID, b.Type, b.UserID, records.NullString(b.OccurrenceID), records.NullString(b.TrainerID), b.StartsAt, b.EndsAt,
		b.SessionType, b.Location, b.Notes, records.NullDecimal(b.Price), b.Status, records.NullInt(b.WaitlistPosition),
		b.CreatedAt, b.UpdatedAt, records.NullTime(b.CancelledAt), b.CancellationReason, b.CancelledBy)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return bookingserrors.ErrDuplicateBooking
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	b.History = []model.StatusChange{change}
	return t.appendHistory(ctx, b.ID, change)
}

func (t *sqlTx) Transition(ctx context.Context, b *model.Booking, to model.BookingStatus, change model.StatusChange) error {
	from, err := applyTransition(b, to, &change)
	if err != nil {
		return err
	}

	res, err := t.tx.ExecContext(ctx, t.q(`UPDATE bookings
		SET status = ?, waitlist_position = ?, updated_at = ?, cancelled_at = ?, cancellation_reason = ?, cancelled_by = ?
		WHERE id = ? AND status = ?`),
		b.Status, records.NullInt(b.WaitlistPosition), b.UpdatedAt, records.NullTime(b.CancelledAt), b.CancellationReason, b.CancelledBy,
		b.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if n == 0 {
		return bookingserrors.ErrStaleStatus
	}

	return t.appendHistory(ctx, b.ID, change)
}

func (t *sqlTx) SetCapacity(ctx context.Context, occurrenceID string, capacity int) error {
	_, err := t.tx.ExecContext(ctx, t.q("UPDATE occurrences SET max_capacity = ? WHERE id = ?"), capacity, occurrenceID)
	if err != nil {
		return fmt.Errorf("failed to update capacity: %w", err)
	}
	return nil
}

func (t *sqlTx) appendHistory(ctx context.Context, bookingID string, c model.StatusChange) error {
	_, err := t.tx.ExecContext(ctx, t.q(`INSERT INTO booking_status_history
		(id, booking_id, from_status, to_status, actor_id, reason, changed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		uuid.NewString(), bookingID, c.From, c.To, c.ActorID, c.Reason, c.At)
	if err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}
