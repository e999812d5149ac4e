package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiobook/internal/notify"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/model"
)

func sessionRequest(trainerID, start, end string) *model.BookTrainerSessionRequest {
	return &model.BookTrainerSessionRequest{
		TrainerID:   trainerID,
		Date:        "2024-09-01",
		StartTime:   start,
		EndTime:     end,
		SessionType: "Personal Training",
	}
}

func TestBookTrainerSession(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	// 2024-09-01 is a Sunday
	trainer := f.addTrainer(t, "80.00", model.AvailabilityWindow{Weekday: time.Sunday, Start: "09:00", End: "17:00"})

	first, err := f.svc.BookTrainerSession(ctx, member1, sessionRequest(trainer, "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, first.Status)
	require.NotNil(t, first.Price)
	assert.True(t, decimal.RequireFromString("80").Equal(*first.Price), "price %s", first.Price)

	_, err = f.svc.BookTrainerSession(ctx, member2, sessionRequest(trainer, "10:30", "11:30"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTrainerUnavailable), "got %v", err)

	adjacent, err := f.svc.BookTrainerSession(ctx, member2, sessionRequest(trainer, "11:00", "12:00"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, adjacent.Status)

	half, err := f.svc.BookTrainerSession(ctx, member3, sessionRequest(trainer, "13:00", "13:30"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("40").Equal(*half.Price), "price %s", half.Price)

	booked, err := f.svc.GetBooking(ctx, member2, adjacent.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "personal_training", booked.SessionType)
	assert.Equal(t, time.Date(2024, 9, 1, 11, 0, 0, 0, time.UTC), booked.StartsAt)

	assert.Len(t, f.events.ofType(notify.EventConfirmed), 3)
}

func TestBookTrainerSession_ConcurrentOverlapsOneWins(t *testing.T) {
	f := newFixture(t, baseNow)
	trainer := f.addTrainer(t, "80.00", model.AvailabilityWindow{Weekday: time.Sunday, Start: "09:00", End: "17:00"})

	const users = 30
	results := make([]*model.BookingResult, users)
	errs := make([]error, users)
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := model.Actor{UserID: fmt.Sprintf("user-%02d", i), Role: model.RoleMember}
			results[i], errs[i] = f.svc.BookTrainerSession(context.Background(), actor, sessionRequest(trainer, "10:00", "11:00"))
		}()
	}
	wg.Wait()

	confirmed := 0
	for i := range users {
		if errs[i] != nil {
			assert.True(t, apperrors.HasCode(errs[i], apperrors.CodeTrainerUnavailable), "user %d: %v", i, errs[i])
			continue
		}
		assert.Equal(t, model.StatusConfirmed, results[i].Status)
		confirmed++
	}
	assert.Equal(t, 1, confirmed)
	assert.Len(t, f.events.ofType(notify.EventConfirmed), 1)
}

func TestBookTrainerSession_Rejections(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	trainer := f.addTrainer(t, "60", model.AvailabilityWindow{Weekday: time.Sunday, Start: "09:00", End: "17:00"})

	t.Run("outside availability", func(t *testing.T) {
		_, err := f.svc.BookTrainerSession(ctx, member1, sessionRequest(trainer, "16:30", "17:30"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeTrainerUnavailable), "got %v", err)
	})

	t.Run("wrong weekday", func(t *testing.T) {
		req := sessionRequest(trainer, "10:00", "11:00")
		req.Date = "2024-09-02"
		_, err := f.svc.BookTrainerSession(ctx, member1, req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeTrainerUnavailable), "got %v", err)
	})

	t.Run("in the past", func(t *testing.T) {
		req := sessionRequest(trainer, "10:00", "11:00")
		req.Date = "2024-07-28"
		_, err := f.svc.BookTrainerSession(ctx, member1, req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodePastEvent), "got %v", err)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := f.svc.BookTrainerSession(ctx, member1, sessionRequest(trainer, "11:00", "10:00"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
	})

	t.Run("unknown trainer", func(t *testing.T) {
		_, err := f.svc.BookTrainerSession(ctx, member1, sessionRequest("5d1f1a9e-3c2b-4d8e-8f0a-1b2c3d4e5f60", "10:00", "11:00"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
	})
}

func TestCancelTrainerSession_FreesSlot(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	trainer := f.addTrainer(t, "60", model.AvailabilityWindow{Weekday: time.Sunday, Start: "09:00", End: "17:00"})

	r, err := f.svc.BookTrainerSession(ctx, member1, sessionRequest(trainer, "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, member1, r.BookingID, nil)
	require.NoError(t, err)

	again, err := f.svc.BookTrainerSession(ctx, member2, sessionRequest(trainer, "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, again.Status)
}

func TestFindConflict(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 9, 1, h, m, 0, 0, time.UTC) }
	existing := []*model.Booking{
		{ID: "a", StartsAt: at(10, 0), EndsAt: at(11, 0), Status: model.StatusConfirmed},
		{ID: "b", StartsAt: at(14, 0), EndsAt: at(15, 0), Status: model.StatusCancelled},
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{"overlaps start", at(9, 30), at(10, 30), "a"},
		{"inside", at(10, 15), at(10, 45), "a"},
		{"covers", at(9, 0), at(12, 0), "a"},
		{"touches end", at(11, 0), at(12, 0), ""},
		{"touches start", at(9, 0), at(10, 0), ""},
		{"cancelled ignored", at(14, 0), at(15, 0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findConflict(existing, tt.start, tt.end)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}
