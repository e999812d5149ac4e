package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	catalogerrors "studiobook/internal/catalog/errors"
	"studiobook/internal/records"
	"studiobook/pkg/db/sqldb"
	"studiobook/pkg/model"
)

type sqlCatalogRepository struct {
	runner  *sqldb.TxRunner
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewSQLCatalogRepository(runner *sqldb.TxRunner) CatalogRepository {
	return &sqlCatalogRepository{
		runner:  runner,
		db:      runner.DB(),
		dialect: runner.Dialect(),
	}
}

func (r *sqlCatalogRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

const (
	confirmedCountExpr = "(SELECT COUNT(*) FROM bookings b WHERE b.occurrence_id = o.id AND b.status = 'confirmed')"
	waitlistCountExpr  = "(SELECT COUNT(*) FROM bookings b WHERE b.occurrence_id = o.id AND b.status = 'wait_listed')"
)

// occurrenceWhere builds the filter shared by listing and counting.
func occurrenceWhere(f model.OccurrenceFilter) (string, []any) {
	var b strings.Builder
	var args []any
	b.WriteString(" WHERE 1 = 1")

	if f.ClassType != "" {
		b.WriteString(" AND o.class_type = ?")
		args = append(args, f.ClassType)
	}
	if f.Level != "" {
		b.WriteString(" AND o.level = ?")
		args = append(args, f.Level)
	}
	if f.InstructorID != "" {
		b.WriteString(" AND o.instructor_id = ?")
		args = append(args, f.InstructorID)
	}
	if f.From != nil {
		b.WriteString(" AND o.starts_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		b.WriteString(" AND o.starts_at < ?")
		args = append(args, f.To.UTC())
	}
	b.WriteString(availabilityClause(f.Availability))
	return b.String(), args
}

func availabilityClause(a model.AvailabilityStatus) string {
	switch a {
	case model.AvailabilityFull:
		return " AND " + confirmedCountExpr + " >= o.max_capacity"
	case model.AvailabilityAlmostFull:
		return fmt.Sprintf(" AND %[1]s < o.max_capacity AND (o.max_capacity - %[1]s) * 100 <= o.max_capacity * %[2]d",
			confirmedCountExpr, model.AlmostFullPercent)
	case model.AvailabilityOpen:
		return fmt.Sprintf(" AND (o.max_capacity - %s) * 100 > o.max_capacity * %d", confirmedCountExpr, model.AlmostFullPercent)
	}
	return ""
}

func selectOccurrences() string {
	return "SELECT " + records.QualifiedOccurrenceColumns("o") + ", " +
		confirmedCountExpr + " AS confirmed_count, " +
		waitlistCountExpr + " AS waitlist_count FROM occurrences o"
}

func (r *sqlCatalogRepository) ListOccurrences(ctx context.Context, f model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error) {
	where, args := occurrenceWhere(f)
	query := selectOccurrences() + where + " ORDER BY o.starts_at ASC, o.id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	occurrences := make([]*model.Occurrence, 0, limit)
	for rows.Next() {
		occ, err := scanCountedOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		occurrences = append(occurrences, occ)
	}
	return occurrences, rows.Err()
}

func (r *sqlCatalogRepository) CountOccurrences(ctx context.Context, f model.OccurrenceFilter) (int64, error) {
	where, args := occurrenceWhere(f)

	var n int64
	if err := r.db.QueryRowContext(ctx, r.q("SELECT COUNT(*) FROM occurrences o"+where), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count occurrences: %w", err)
	}
	return n, nil
}

func (r *sqlCatalogRepository) FindOccurrence(ctx context.Context, id string) (*model.Occurrence, error) {
	occ, err := scanCountedOccurrence(r.db.QueryRowContext(ctx, r.q(selectOccurrences()+" WHERE o.id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrOccurrenceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find occurrence: %w", err)
	}
	return occ, nil
}

func scanCountedOccurrence(s records.RowScanner) (*model.Occurrence, error) {
	var confirmed, waiting int
	occ, err := records.ScanOccurrence(s, &confirmed, &waiting)
	if err != nil {
		return nil, err
	}
	occ.ApplyCounts(confirmed, waiting)
	return occ, nil
}

func (r *sqlCatalogRepository) CreateOccurrence(ctx context.Context, occ *model.Occurrence) error {
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	occ.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.db.ExecContext(ctx, r.q("INSERT INTO occurrences ("+records.OccurrenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		occ.ID, occ.ClassTemplateID, occ.ClassName, occ.ClassType, occ.Level, occ.StartsAt.UTC(), occ.EndsAt.UTC(),
		occ.Room, occ.InstructorID, occ.MaxCapacity, occ.CreatedAt)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateOccurrence, occ.ID)
		}
		return fmt.Errorf("failed to create occurrence: %w", err)
	}
	occ.ApplyCounts(0, 0)
	return nil
}

func (r *sqlCatalogRepository) FindTrainer(ctx context.Context, id string) (*model.Trainer, error) {
	t, err := records.LoadTrainer(ctx, r.db, r.dialect, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrTrainerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find trainer: %w", err)
	}
	return t, nil
}

func (r *sqlCatalogRepository) UpsertTrainer(ctx context.Context, t *model.Trainer) (bool, error) {
	var created bool
	err := r.runner.InTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		created = false
		now := time.Now().UTC().Truncate(time.Millisecond)

		insert := r.dialect.InsertIgnore("trainers", []string{"id", "name", "hourly_rate", "created_at", "updated_at"}, "id")
		res, err := tx.ExecContext(ctx, r.q(insert), t.ID, t.Name, t.HourlyRate, now, now)
		if err != nil {
			return fmt.Errorf("failed to create trainer: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to create trainer: %w", err)
		}

		if inserted > 0 {
			t.CreatedAt = now
			created = true
		} else {
			_, err := tx.ExecContext(ctx, r.q("UPDATE trainers SET name = ?, hourly_rate = ?, updated_at = ? WHERE id = ?"),
				t.Name, t.HourlyRate, now, t.ID)
			if err != nil {
				return fmt.Errorf("failed to update trainer: %w", err)
			}
		}
		t.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, r.q("DELETE FROM trainer_availability WHERE trainer_id = ?"), t.ID); err != nil {
			return fmt.Errorf("failed to clear trainer availability: %w", err)
		}
		for _, w := range t.Availability {
			_, err := tx.ExecContext(ctx, r.q(`INSERT INTO trainer_availability (trainer_id, weekday, start_clock, end_clock)
				VALUES (?, ?, ?, ?)`), t.ID, int(w.Weekday), w.Start, w.End)
			if err != nil {
				return fmt.Errorf("failed to store trainer availability: %w", err)
			}
		}
		return nil
	})
	return created, err
}

func (r *sqlCatalogRepository) TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]model.Interval, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT starts_at, ends_at FROM bookings
		WHERE trainer_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?
		ORDER BY starts_at ASC`), trainerID, model.StatusCancelled, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query trainer appointments: %w", err)
	}
	defer rows.Close()

	var intervals []model.Interval
	for rows.Next() {
		var in model.Interval
		if err := rows.Scan(&in.Start, &in.End); err != nil {
			return nil, fmt.Errorf("failed to scan trainer appointment: %w", err)
		}
		in.Start = in.Start.UTC()
		in.End = in.End.UTC()
		intervals = append(intervals, in)
	}
	return intervals, rows.Err()
}
