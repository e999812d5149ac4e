package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogerrors "studiobook/internal/catalog/errors"
	migrations "studiobook/internal/migrations/sql"
	"studiobook/pkg/db"
	"studiobook/pkg/db/sqldb"
	"studiobook/pkg/model"
)

var monday = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

func newSQLiteCatalog(t *testing.T) (CatalogRepository, *sqldb.TxRunner) {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db")
	sqlDB, dialect, err := sqldb.Open(ctx, sqldb.SQLite, dsn, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrations.RunMigration(ctx, sqlDB, dialect))

	runner := sqldb.NewTxRunner(sqlDB, dialect, db.RetryPolicy{Timeout: 10 * time.Second, MaxAttempts: 3, Backoff: time.Millisecond})
	return NewSQLCatalogRepository(runner), runner
}

func createOccurrence(t *testing.T, repo CatalogRepository, classType string, startsAt time.Time, capacity int) *model.Occurrence {
	t.Helper()
	occ := &model.Occurrence{
		ClassName:    "Class " + classType,
		ClassType:    classType,
		Level:        "all",
		StartsAt:     startsAt,
		EndsAt:       startsAt.Add(time.Hour),
		InstructorID: "inst-1",
		MaxCapacity:  capacity,
	}
	require.NoError(t, repo.CreateOccurrence(context.Background(), occ))
	return occ
}

func addBookings(t *testing.T, runner *sqldb.TxRunner, occ *model.Occurrence, status model.BookingStatus, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := runner.DB().Exec(`INSERT INTO bookings
			(id, booking_type, user_id, occurrence_id, starts_at, ends_at, status, created_at, updated_at)
			VALUES (?, 'class', ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), fmt.Sprintf("%s-user-%d", status, i), occ.ID, occ.StartsAt, occ.EndsAt, status, monday, monday)
		require.NoError(t, err)
	}
}

func TestSQLCatalog_ListWithDerivedCounts(t *testing.T) {
	repo, runner := newSQLiteCatalog(t)
	ctx := context.Background()

	open := createOccurrence(t, repo, "yoga", monday.Add(9*time.Hour), 10)
	almost := createOccurrence(t, repo, "yoga", monday.Add(10*time.Hour), 10)
	full := createOccurrence(t, repo, "pilates", monday.Add(11*time.Hour), 2)
	createOccurrence(t, repo, "yoga", monday.Add(48*time.Hour), 10)

	addBookings(t, runner, open, model.StatusConfirmed, 3)
	addBookings(t, runner, open, model.StatusCancelled, 4)
	addBookings(t, runner, almost, model.StatusConfirmed, 8)
	addBookings(t, runner, full, model.StatusConfirmed, 2)
	addBookings(t, runner, full, model.StatusWaitListed, 1)

	from, to := model.DayBounds(monday)
	dayFilter := model.OccurrenceFilter{From: &from, To: &to}

	items, err := repo.ListOccurrences(ctx, dayFilter, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{open.ID, almost.ID, full.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

	assert.Equal(t, 3, items[0].ConfirmedCount)
	assert.Equal(t, 7, items[0].SpotsAvailable)
	assert.Equal(t, model.AvailabilityOpen, items[0].Availability)
	assert.Equal(t, model.AvailabilityAlmostFull, items[1].Availability)
	assert.Equal(t, model.AvailabilityFull, items[2].Availability)
	assert.Equal(t, 1, items[2].WaitlistCount)
	assert.True(t, items[0].StartsAt.Equal(monday.Add(9*time.Hour)))

	total, err := repo.CountOccurrences(ctx, dayFilter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	for status, want := range map[model.AvailabilityStatus]string{
		model.AvailabilityOpen:       open.ID,
		model.AvailabilityAlmostFull: almost.ID,
		model.AvailabilityFull:       full.ID,
	} {
		f := dayFilter
		f.Availability = status
		items, err := repo.ListOccurrences(ctx, f, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 1, "availability %s", status)
		assert.Equal(t, want, items[0].ID)

		n, err := repo.CountOccurrences(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	items, err = repo.ListOccurrences(ctx, model.OccurrenceFilter{ClassType: "yoga"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = repo.ListOccurrences(ctx, model.OccurrenceFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSQLCatalog_FindOccurrence(t *testing.T) {
	repo, runner := newSQLiteCatalog(t)
	ctx := context.Background()

	occ := createOccurrence(t, repo, "spin", monday.Add(7*time.Hour), 5)
	addBookings(t, runner, occ, model.StatusConfirmed, 2)

	found, err := repo.FindOccurrence(ctx, occ.ID)
	require.NoError(t, err)
	assert.Equal(t, "spin", found.ClassType)
	assert.Equal(t, 2, found.ConfirmedCount)
	assert.Equal(t, 3, found.SpotsAvailable)

	_, err = repo.FindOccurrence(ctx, "missing")
	assert.ErrorIs(t, err, catalogerrors.ErrOccurrenceNotFound)

	dup := *occ
	assert.ErrorIs(t, repo.CreateOccurrence(ctx, &dup), catalogerrors.ErrDuplicateOccurrence)
}

func TestSQLCatalog_UpsertTrainer(t *testing.T) {
	repo, _ := newSQLiteCatalog(t)
	ctx := context.Background()

	trainer := &model.Trainer{
		ID:         "tr-1",
		Name:       "Dana",
		HourlyRate: decimal.RequireFromString("80.00"),
		Availability: []model.AvailabilityWindow{
			{Weekday: time.Monday, Start: "09:00", End: "12:00"},
			{Weekday: time.Tuesday, Start: "13:00", End: "17:00"},
		},
	}
	created, err := repo.UpsertTrainer(ctx, trainer)
	require.NoError(t, err)
	assert.True(t, created)

	trainer.Name = "Dana Lee"
	trainer.HourlyRate = decimal.RequireFromString("95.50")
	trainer.Availability = []model.AvailabilityWindow{{Weekday: time.Friday, Start: "07:00", End: "10:00"}}
	created, err = repo.UpsertTrainer(ctx, trainer)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.FindTrainer(ctx, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Lee", stored.Name)
	assert.True(t, stored.HourlyRate.Equal(decimal.RequireFromString("95.5")))
	assert.Equal(t, []model.AvailabilityWindow{{Weekday: time.Friday, Start: "07:00", End: "10:00"}}, stored.Availability)

	_, err = repo.FindTrainer(ctx, "tr-404")
	assert.ErrorIs(t, err, catalogerrors.ErrTrainerNotFound)
}

func TestSQLCatalog_UpsertTrainer_ConcurrentFirstWrites(t *testing.T) {
	repo, _ := newSQLiteCatalog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var createdCount atomic.Int32
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := repo.UpsertTrainer(ctx, &model.Trainer{
				ID:           "tr-race",
				Name:         fmt.Sprintf("Writer %d", i),
				HourlyRate:   decimal.RequireFromString("60.00"),
				Availability: []model.AvailabilityWindow{{Weekday: time.Monday, Start: "09:00", End: "12:00"}},
			})
			if err != nil {
				errs <- err
				return
			}
			if created {
				createdCount.Add(1)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), createdCount.Load())

	stored, err := repo.FindTrainer(ctx, "tr-race")
	require.NoError(t, err)
	assert.Len(t, stored.Availability, 1)
}

func TestSQLCatalog_UpsertTrainer_IgnoredInsertUpdates(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	dialect, err := sqldb.DialectFor(sqldb.MySQL)
	require.NoError(t, err)
	repo := NewSQLCatalogRepository(sqldb.NewTxRunner(sqlDB, dialect,
		db.RetryPolicy{Timeout: 5 * time.Second, MaxAttempts: 1, Backoff: time.Millisecond}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT IGNORE INTO trainers").
		WithArgs("tr-1", "Dana", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE trainers SET name = \\?").
		WithArgs("Dana", sqlmock.AnyArg(), sqlmock.AnyArg(), "tr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM trainer_availability").
		WithArgs("tr-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	created, err := repo.UpsertTrainer(context.Background(), &model.Trainer{
		ID:         "tr-1",
		Name:       "Dana",
		HourlyRate: decimal.RequireFromString("80.00"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCatalog_TrainerAppointments(t *testing.T) {
	repo, runner := newSQLiteCatalog(t)
	ctx := context.Background()

	insert := func(start time.Time, status model.BookingStatus) {
		_, err := runner.DB().Exec(`INSERT INTO bookings
			(id, booking_type, user_id, trainer_id, starts_at, ends_at, status, created_at, updated_at)
			VALUES (?, 'trainer_session', 'u1', 'tr-1', ?, ?, ?, ?, ?)`,
			uuid.NewString(), start, start.Add(time.Hour), status, monday, monday)
		require.NoError(t, err)
	}
	insert(monday.Add(14*time.Hour), model.StatusConfirmed)
	insert(monday.Add(10*time.Hour), model.StatusCompleted)
	insert(monday.Add(12*time.Hour), model.StatusCancelled)
	insert(monday.Add(34*time.Hour), model.StatusConfirmed)

	from, to := model.DayBounds(monday)
	got, err := repo.TrainerAppointments(ctx, "tr-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, []model.Interval{
		{Start: monday.Add(10 * time.Hour), End: monday.Add(11 * time.Hour)},
		{Start: monday.Add(14 * time.Hour), End: monday.Add(15 * time.Hour)},
	}, got)
}
