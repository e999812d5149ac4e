package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"studiobook/internal/bookings/repository"
	"studiobook/internal/bookings/validator"
	migrations "studiobook/internal/migrations/sql"
	"studiobook/internal/notify"
	"studiobook/pkg/config"
	"studiobook/pkg/db"
	"studiobook/pkg/db/sqldb"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(events ...notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, events...)
}

func (d *recordingDispatcher) ofType(t notify.EventType) []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc    BookingService
	db     *sql.DB
	clock  *testClock
	events *recordingDispatcher
}

var (
	member1 = model.Actor{UserID: "u1", Role: model.RoleMember}
	member2 = model.Actor{UserID: "u2", Role: model.RoleMember}
	member3 = model.Actor{UserID: "u3", Role: model.RoleMember}
	staff   = model.Actor{UserID: "staff-1", Role: model.RoleStaff}
)

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	return newFixtureWithCutoff(t, now, config.DefaultCancellationCutoff)
}

func newFixtureWithCutoff(t *testing.T, now time.Time, cutoff time.Duration) *fixture {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "studiobook.db")
	sqlDB, dialect, err := sqldb.Open(ctx, sqldb.SQLite, dsn, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrations.RunMigration(ctx, sqlDB, dialect))

	log := logger.Nop()
	cfg := &config.Config{
		Log:                log,
		Location:           time.UTC,
		CancellationCutoff: cutoff,
		SweepBatchSize:     100,
	}
	policy := db.RetryPolicy{Timeout: 30 * time.Second, MaxAttempts: 5, Backoff: time.Millisecond}
	ledger := repository.NewSQLLedger(sqldb.NewTxRunner(sqlDB, dialect, policy))

	clock := &testClock{now: now}
	events := &recordingDispatcher{}
	svc := NewBookingService(ledger, validator.NewBookingValidator(log), events, cfg, WithClock(clock.Now))

	return &fixture{svc: svc, db: sqlDB, clock: clock, events: events}
}

func (f *fixture) addOccurrence(t *testing.T, startsAt time.Time, capacity int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.db.Exec(`INSERT INTO occurrences
		(id, class_template_id, class_name, class_type, level, starts_at, ends_at, room, instructor_id, max_capacity, created_at)
		VALUES (?, '', 'Morning Flow', 'yoga', 'all', ?, ?, 'Studio A', 'inst-1', ?, ?)`,
		id, startsAt.UTC(), startsAt.Add(time.Hour).UTC(), capacity, startsAt.Add(-30*24*time.Hour).UTC())
	require.NoError(t, err)
	return id
}

func (f *fixture) addTrainer(t *testing.T, rate string, windows ...model.AvailabilityWindow) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.db.Exec(`INSERT INTO trainers (id, name, hourly_rate, created_at, updated_at) VALUES (?, 'Dana', ?, ?, ?)`,
		id, rate, now, now)
	require.NoError(t, err)
	for _, w := range windows {
		_, err := f.db.Exec(`INSERT INTO trainer_availability (trainer_id, weekday, start_clock, end_clock) VALUES (?, ?, ?, ?)`,
			id, int(w.Weekday), w.Start, w.End)
		require.NoError(t, err)
	}
	return id
}

func (f *fixture) countBookings(t *testing.T, occurrenceID string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE occurrence_id = ?`, occurrenceID).Scan(&n))
	return n
}

func (f *fixture) book(t *testing.T, actor model.Actor, occurrenceID string) *model.BookingResult {
	t.Helper()
	res, err := f.svc.BookClass(context.Background(), actor, &model.BookClassRequest{
		OccurrenceID: occurrenceID,
		BookingType:  model.BookingTypeClass,
	})
	require.NoError(t, err)
	return res
}
