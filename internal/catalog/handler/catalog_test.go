package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "studiobook/pkg/errors"
	httputil "studiobook/pkg/http"
	"studiobook/pkg/logger"
	"studiobook/pkg/middleware"
	"studiobook/pkg/model"
)

type mockCatalogService struct {
	listFunc   func(ctx context.Context, req *model.ListOccurrencesRequest) ([]*model.Occurrence, int64, error)
	getFunc    func(ctx context.Context, id string) (*model.Occurrence, error)
	createFunc func(ctx context.Context, actor model.Actor, req *model.CreateOccurrenceRequest) (*model.Occurrence, error)
	upsertFunc func(ctx context.Context, actor model.Actor, id string, req *model.UpsertTrainerRequest) (*model.Trainer, bool, error)
	availFunc  func(ctx context.Context, trainerID, date string) (*model.TrainerAvailability, error)
}

func (m *mockCatalogService) ListOccurrences(ctx context.Context, req *model.ListOccurrencesRequest) ([]*model.Occurrence, int64, error) {
	return m.listFunc(ctx, req)
}

func (m *mockCatalogService) GetOccurrence(ctx context.Context, id string) (*model.Occurrence, error) {
	return m.getFunc(ctx, id)
}

func (m *mockCatalogService) CreateOccurrence(ctx context.Context, actor model.Actor, req *model.CreateOccurrenceRequest) (*model.Occurrence, error) {
	return m.createFunc(ctx, actor, req)
}

func (m *mockCatalogService) UpsertTrainer(ctx context.Context, actor model.Actor, id string, req *model.UpsertTrainerRequest) (*model.Trainer, bool, error) {
	return m.upsertFunc(ctx, actor, id, req)
}

func (m *mockCatalogService) GetTrainerAvailability(ctx context.Context, trainerID, date string) (*model.TrainerAvailability, error) {
	return m.availFunc(ctx, trainerID, date)
}

var admin = model.Actor{UserID: "a1", Role: model.RoleAdmin}

func newRouter(svc *mockCatalogService) *httprouter.Router {
	router := httprouter.New()
	NewCatalogHandler(svc, logger.Nop()).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string, actor *model.Actor) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListOccurrences_QueryParameters(t *testing.T) {
	var got *model.ListOccurrencesRequest
	svc := &mockCatalogService{
		listFunc: func(ctx context.Context, req *model.ListOccurrencesRequest) ([]*model.Occurrence, int64, error) {
			got = req
			return []*model.Occurrence{{ID: "o1"}}, 25, nil
		},
	}
	router := newRouter(svc)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int64
	}{
		{"defaults", "", http.StatusOK, 10, 0},
		{"explicit page", "?limit=5&offset=10", http.StatusOK, 5, 10},
		{"limit capped", "?limit=5000", http.StatusOK, 100, 0},
		{"negative offset", "?offset=-3", http.StatusOK, 10, 0},
		{"non numeric limit", "?limit=ten", http.StatusBadRequest, 0, 0},
		{"non numeric offset", "?offset=x", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			rec := do(router, http.MethodGet, "/api/v1/occurrences"+tt.query, "", nil)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset)

			var body httputil.PaginatedResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, int64(25), body.TotalCount)
		})
	}
}

func TestListOccurrences_Filters(t *testing.T) {
	var got *model.ListOccurrencesRequest
	svc := &mockCatalogService{
		listFunc: func(ctx context.Context, req *model.ListOccurrencesRequest) ([]*model.Occurrence, int64, error) {
			got = req
			return nil, 0, nil
		},
	}

	rec := do(newRouter(svc), http.MethodGet,
		"/api/v1/occurrences?class_type=yoga&level=beginner&from=2024-09-01&to=2024-09-07&availability=almost_full&instructor_id=i1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "yoga", got.ClassType)
	assert.Equal(t, "beginner", got.Level)
	assert.Equal(t, "2024-09-01", got.From)
	assert.Equal(t, "2024-09-07", got.To)
	assert.Equal(t, model.AvailabilityAlmostFull, got.Availability)
	assert.Equal(t, "i1", got.InstructorID)
}

func TestGetOccurrence_NotFound(t *testing.T) {
	svc := &mockCatalogService{
		getFunc: func(ctx context.Context, id string) (*model.Occurrence, error) {
			return nil, apperrors.NotFoundWithID("Occurrence", id)
		},
	}

	rec := do(newRouter(svc), http.MethodGet, "/api/v1/occurrences/id/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOccurrence_RequiresActor(t *testing.T) {
	called := false
	svc := &mockCatalogService{
		createFunc: func(ctx context.Context, actor model.Actor, req *model.CreateOccurrenceRequest) (*model.Occurrence, error) {
			called = true
			return &model.Occurrence{ID: "o1", ClassName: req.ClassName}, nil
		},
	}
	router := newRouter(svc)
	body := `{"class_name":"Flow","class_type":"yoga","level":"all","starts_at":"2024-09-02T18:00:00Z","ends_at":"2024-09-02T19:00:00Z","instructor_id":"i1","max_capacity":10}`

	rec := do(router, http.MethodPost, "/api/v1/occurrences", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	rec = do(router, http.MethodPost, "/api/v1/occurrences", body, &admin)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, called)
}

func TestUpsertTrainer_CreatedVersusUpdated(t *testing.T) {
	created := true
	svc := &mockCatalogService{
		upsertFunc: func(ctx context.Context, actor model.Actor, id string, req *model.UpsertTrainerRequest) (*model.Trainer, bool, error) {
			assert.True(t, req.HourlyRate.Equal(decimal.NewFromInt(75)))
			return &model.Trainer{ID: id, Name: req.Name, HourlyRate: req.HourlyRate}, created, nil
		},
	}
	router := newRouter(svc)
	body := `{"name":"Dana","hourly_rate":"75","availability":[{"weekday":1,"start":"09:00","end":"12:00"}]}`

	rec := do(router, http.MethodPut, "/api/v1/trainers/id/t1", body, &admin)
	assert.Equal(t, http.StatusCreated, rec.Code)

	created = false
	rec = do(router, http.MethodPut, "/api/v1/trainers/id/t1", body, &admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTrainerAvailability(t *testing.T) {
	svc := &mockCatalogService{
		availFunc: func(ctx context.Context, trainerID, date string) (*model.TrainerAvailability, error) {
			return &model.TrainerAvailability{TrainerID: trainerID, Date: date}, nil
		},
	}
	router := newRouter(svc)

	rec := do(router, http.MethodGet, "/api/v1/trainers/id/t1/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/trainers/id/t1/availability?date=2024-09-02", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data model.TrainerAvailability `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "t1", body.Data.TrainerID)
	assert.Equal(t, "2024-09-02", body.Data.Date)
}
