package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogerrors "studiobook/internal/catalog/errors"
	"studiobook/internal/catalog/validator"
	"studiobook/pkg/config"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

type mockCatalogRepository struct {
	mu sync.Mutex

	listFunc         func(ctx context.Context, f model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error)
	countFunc        func(ctx context.Context, f model.OccurrenceFilter) (int64, error)
	findFunc         func(ctx context.Context, id string) (*model.Occurrence, error)
	createFunc       func(ctx context.Context, occ *model.Occurrence) error
	findTrainerFunc  func(ctx context.Context, id string) (*model.Trainer, error)
	upsertFunc       func(ctx context.Context, t *model.Trainer) (bool, error)
	appointmentsFunc func(ctx context.Context, trainerID string, from, to time.Time) ([]model.Interval, error)

	filters []model.OccurrenceFilter
}

func (m *mockCatalogRepository) ListOccurrences(ctx context.Context, f model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error) {
	m.mu.Lock()
	m.filters = append(m.filters, f)
	m.mu.Unlock()
	if m.listFunc != nil {
		return m.listFunc(ctx, f, limit, offset)
	}
	return []*model.Occurrence{}, nil
}

func (m *mockCatalogRepository) CountOccurrences(ctx context.Context, f model.OccurrenceFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, f)
	}
	return 0, nil
}

func (m *mockCatalogRepository) FindOccurrence(ctx context.Context, id string) (*model.Occurrence, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, id)
	}
	return nil, catalogerrors.ErrOccurrenceNotFound
}

func (m *mockCatalogRepository) CreateOccurrence(ctx context.Context, occ *model.Occurrence) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, occ)
	}
	occ.ID = "occ-1"
	return nil
}

func (m *mockCatalogRepository) FindTrainer(ctx context.Context, id string) (*model.Trainer, error) {
	if m.findTrainerFunc != nil {
		return m.findTrainerFunc(ctx, id)
	}
	return nil, catalogerrors.ErrTrainerNotFound
}

func (m *mockCatalogRepository) UpsertTrainer(ctx context.Context, t *model.Trainer) (bool, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, t)
	}
	return true, nil
}

func (m *mockCatalogRepository) TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]model.Interval, error) {
	if m.appointmentsFunc != nil {
		return m.appointmentsFunc(ctx, trainerID, from, to)
	}
	return nil, nil
}

var (
	member = model.Actor{UserID: "u1", Role: model.RoleMember}
	admin  = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
)

func newTestService(t *testing.T, repo *mockCatalogRepository, loc *time.Location) CatalogService {
	t.Helper()
	log := logger.Nop()
	cfg := &config.Config{
		Log:         log,
		Location:    loc,
		ReadTimeout: 5 * time.Second,
	}
	return NewCatalogService(repo, validator.NewCatalogValidator(log), cfg)
}

func TestListOccurrences_ConcurrentCountAndPage(t *testing.T) {
	repo := &mockCatalogRepository{
		countFunc: func(ctx context.Context, f model.OccurrenceFilter) (int64, error) {
			time.Sleep(10 * time.Millisecond)
			return 42, nil
		},
		listFunc: func(ctx context.Context, f model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error) {
			time.Sleep(10 * time.Millisecond)
			return []*model.Occurrence{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	svc := newTestService(t, repo, time.UTC)

	for i := 0; i < 5; i++ {
		items, total, err := svc.ListOccurrences(context.Background(), &model.ListOccurrencesRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(42), total)
		assert.Len(t, items, 2)
	}
}

func TestListOccurrences_NormalizesPagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	repo := &mockCatalogRepository{
		listFunc: func(ctx context.Context, f model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	svc := newTestService(t, repo, time.UTC)

	req := &model.ListOccurrencesRequest{Limit: 100000, Offset: -5}
	_, _, err := svc.ListOccurrences(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPaginationLimit, gotLimit)
	assert.Equal(t, int64(0), gotOffset)
	assert.Equal(t, gotLimit, req.Limit)

	_, _, err = svc.ListOccurrences(context.Background(), &model.ListOccurrencesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)
}

func TestListOccurrences_DateRangeInStudioZone(t *testing.T) {
	loc := time.FixedZone("EDT", -4*60*60)
	repo := &mockCatalogRepository{}
	svc := newTestService(t, repo, loc)

	_, _, err := svc.ListOccurrences(context.Background(), &model.ListOccurrencesRequest{
		ClassType:    "  Yoga ",
		From:         "2024-09-01",
		To:           "2024-09-02",
		Availability: model.AvailabilityAlmostFull,
	})
	require.NoError(t, err)
	require.Len(t, repo.filters, 1)

	f := repo.filters[0]
	assert.Equal(t, "yoga", f.ClassType)
	assert.Equal(t, model.AvailabilityAlmostFull, f.Availability)
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.True(t, f.From.Equal(time.Date(2024, 9, 1, 4, 0, 0, 0, time.UTC)), "from = %s", f.From.UTC())
	assert.True(t, f.To.Equal(time.Date(2024, 9, 3, 4, 0, 0, 0, time.UTC)), "to = %s", f.To.UTC())
}

func TestListOccurrences_RejectsBadFilter(t *testing.T) {
	svc := newTestService(t, &mockCatalogRepository{}, time.UTC)

	_, _, err := svc.ListOccurrences(context.Background(), &model.ListOccurrencesRequest{From: "2024-09-05", To: "2024-09-01"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, _, err = svc.ListOccurrences(context.Background(), &model.ListOccurrencesRequest{Availability: "empty"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestListOccurrences_RepositoryFailure(t *testing.T) {
	repo := &mockCatalogRepository{
		countFunc: func(ctx context.Context, f model.OccurrenceFilter) (int64, error) {
			return 0, errors.New("connection reset")
		},
	}
	svc := newTestService(t, repo, time.UTC)

	_, _, err := svc.ListOccurrences(context.Background(), &model.ListOccurrencesRequest{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestGetOccurrence(t *testing.T) {
	repo := &mockCatalogRepository{
		findFunc: func(ctx context.Context, id string) (*model.Occurrence, error) {
			if id == "occ-1" {
				return &model.Occurrence{ID: id, MaxCapacity: 10}, nil
			}
			return nil, catalogerrors.ErrOccurrenceNotFound
		},
	}
	svc := newTestService(t, repo, time.UTC)

	occ, err := svc.GetOccurrence(context.Background(), "occ-1")
	require.NoError(t, err)
	assert.Equal(t, 10, occ.MaxCapacity)

	_, err = svc.GetOccurrence(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = svc.GetOccurrence(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func validOccurrenceRequest() *model.CreateOccurrenceRequest {
	start := time.Date(2024, 9, 2, 18, 0, 0, 0, time.UTC)
	return &model.CreateOccurrenceRequest{
		ClassName:    "Evening Flow",
		ClassType:    "Yoga",
		Level:        "all",
		StartsAt:     start,
		EndsAt:       start.Add(time.Hour),
		InstructorID: "4f6c1a9e-2b51-4c1e-9a55-0d7c2f3b8e11",
		MaxCapacity:  12,
	}
}

func TestCreateOccurrence(t *testing.T) {
	var stored *model.Occurrence
	repo := &mockCatalogRepository{
		createFunc: func(ctx context.Context, occ *model.Occurrence) error {
			occ.ID = "occ-9"
			stored = occ
			return nil
		},
	}
	svc := newTestService(t, repo, time.UTC)

	_, err := svc.CreateOccurrence(context.Background(), member, validOccurrenceRequest())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Nil(t, stored)

	occ, err := svc.CreateOccurrence(context.Background(), admin, validOccurrenceRequest())
	require.NoError(t, err)
	assert.Equal(t, "occ-9", occ.ID)
	assert.Equal(t, "yoga", occ.ClassType)
	assert.Equal(t, 12, occ.MaxCapacity)

	bad := validOccurrenceRequest()
	bad.EndsAt = bad.StartsAt
	_, err = svc.CreateOccurrence(context.Background(), admin, bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestCreateOccurrence_Duplicate(t *testing.T) {
	repo := &mockCatalogRepository{
		createFunc: func(ctx context.Context, occ *model.Occurrence) error {
			return catalogerrors.ErrDuplicateOccurrence
		},
	}
	svc := newTestService(t, repo, time.UTC)

	_, err := svc.CreateOccurrence(context.Background(), admin, validOccurrenceRequest())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestUpsertTrainer(t *testing.T) {
	var saved *model.Trainer
	repo := &mockCatalogRepository{
		upsertFunc: func(ctx context.Context, tr *model.Trainer) (bool, error) {
			saved = tr
			return true, nil
		},
		findTrainerFunc: func(ctx context.Context, id string) (*model.Trainer, error) {
			return saved, nil
		},
	}
	svc := newTestService(t, repo, time.UTC)

	req := &model.UpsertTrainerRequest{
		Name:       "  dana   lee ",
		HourlyRate: decimal.RequireFromString("80.005"),
		Availability: []model.AvailabilityWindow{
			{Weekday: time.Wednesday, Start: "13:00", End: "17:00"},
			{Weekday: time.Monday, Start: "14:00", End: "18:00"},
			{Weekday: time.Monday, Start: "08:00", End: "12:00"},
		},
	}

	_, _, err := svc.UpsertTrainer(context.Background(), member, "tr-1", req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	trainer, created, err := svc.UpsertTrainer(context.Background(), admin, "tr-1", req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "tr-1", trainer.ID)
	assert.Equal(t, "80.01", trainer.HourlyRate.StringFixed(2))
	require.Len(t, trainer.Availability, 3)
	assert.Equal(t, "08:00", trainer.Availability[0].Start)
	assert.Equal(t, "14:00", trainer.Availability[1].Start)
	assert.Equal(t, time.Wednesday, trainer.Availability[2].Weekday)
}

func TestUpsertTrainer_RejectsOverlap(t *testing.T) {
	svc := newTestService(t, &mockCatalogRepository{}, time.UTC)

	_, _, err := svc.UpsertTrainer(context.Background(), admin, "tr-1", &model.UpsertTrainerRequest{
		Name:       "Dana",
		HourlyRate: decimal.NewFromInt(60),
		Availability: []model.AvailabilityWindow{
			{Weekday: time.Monday, Start: "08:00", End: "12:00"},
			{Weekday: time.Monday, Start: "11:00", End: "13:00"},
		},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestGetTrainerAvailability(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2024, 9, 2, h, m, 0, 0, time.UTC) }
	var gotFrom, gotTo time.Time
	repo := &mockCatalogRepository{
		findTrainerFunc: func(ctx context.Context, id string) (*model.Trainer, error) {
			return &model.Trainer{
				ID: id,
				Availability: []model.AvailabilityWindow{
					{Weekday: time.Monday, Start: "09:00", End: "12:00"},
					{Weekday: time.Monday, Start: "14:00", End: "16:00"},
					{Weekday: time.Tuesday, Start: "09:00", End: "17:00"},
				},
			}, nil
		},
		appointmentsFunc: func(ctx context.Context, trainerID string, from, to time.Time) ([]model.Interval, error) {
			gotFrom, gotTo = from, to
			return []model.Interval{
				{Start: day(9, 0), End: day(10, 0)},
				{Start: day(11, 0), End: day(11, 30)},
				{Start: day(15, 0), End: day(16, 0)},
			}, nil
		},
	}
	svc := newTestService(t, repo, time.UTC)

	avail, err := svc.GetTrainerAvailability(context.Background(), "tr-1", "2024-09-02")
	require.NoError(t, err)

	assert.True(t, gotFrom.Equal(day(0, 0)))
	assert.True(t, gotTo.Equal(day(24, 0)))
	assert.Len(t, avail.Windows, 2)
	assert.Len(t, avail.Booked, 3)
	assert.Equal(t, []model.Interval{
		{Start: day(10, 0), End: day(11, 0)},
		{Start: day(11, 30), End: day(12, 0)},
		{Start: day(14, 0), End: day(15, 0)},
	}, avail.Free)
}

func TestGetTrainerAvailability_Errors(t *testing.T) {
	svc := newTestService(t, &mockCatalogRepository{}, time.UTC)

	_, err := svc.GetTrainerAvailability(context.Background(), "tr-1", "02/09/2024")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.GetTrainerAvailability(context.Background(), "tr-404", "2024-09-02")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestSubtract(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 9, 2, h, 0, 0, 0, time.UTC) }
	window := model.Interval{Start: at(9), End: at(17)}

	tests := []struct {
		name string
		busy []model.Interval
		want []model.Interval
	}{
		{"no appointments", nil, []model.Interval{window}},
		{"fully booked", []model.Interval{{Start: at(8), End: at(18)}}, nil},
		{"overlaps start", []model.Interval{{Start: at(8), End: at(10)}}, []model.Interval{{Start: at(10), End: at(17)}}},
		{"overlaps end", []model.Interval{{Start: at(16), End: at(18)}}, []model.Interval{{Start: at(9), End: at(16)}}},
		{"outside window", []model.Interval{{Start: at(6), End: at(8)}, {Start: at(18), End: at(19)}}, []model.Interval{window}},
		{
			"back to back",
			[]model.Interval{{Start: at(10), End: at(11)}, {Start: at(11), End: at(12)}},
			[]model.Interval{{Start: at(9), End: at(10)}, {Start: at(12), End: at(17)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subtract(window, tt.busy))
		})
	}
}
