package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiobook/pkg/logger"
	"studiobook/pkg/model"
	"studiobook/pkg/validation"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs validation.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	var fields []string
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidateListRequest(t *testing.T) {
	v := NewCatalogValidator(logger.Nop())

	assert.NoError(t, v.ValidateListRequest(&model.ListOccurrencesRequest{}))
	assert.NoError(t, v.ValidateListRequest(&model.ListOccurrencesRequest{
		Level:        "beginner",
		From:         "2024-09-01",
		To:           "2024-09-07",
		Availability: model.AvailabilityAlmostFull,
	}))

	err := v.ValidateListRequest(&model.ListOccurrencesRequest{Availability: "empty"})
	assert.Contains(t, fieldsOf(t, err), "Availability")

	err = v.ValidateListRequest(&model.ListOccurrencesRequest{From: "2024-09-07", To: "2024-09-01"})
	assert.Equal(t, []string{"To"}, fieldsOf(t, err))

	err = v.ValidateListRequest(&model.ListOccurrencesRequest{From: "01/09/2024"})
	assert.Contains(t, fieldsOf(t, err), "From")
}

func TestValidateOccurrence(t *testing.T) {
	v := NewCatalogValidator(logger.Nop())
	start := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	valid := &model.CreateOccurrenceRequest{
		ClassName:    "Morning Flow",
		ClassType:    "yoga",
		Level:        "all",
		StartsAt:     start,
		EndsAt:       start.Add(time.Hour),
		InstructorID: "6a1e0c8e-2f4b-4a57-9d8e-1c2b3a4d5e6f",
		MaxCapacity:  12,
	}
	assert.NoError(t, v.ValidateOccurrence(valid))

	bad := *valid
	bad.EndsAt = start
	bad.MaxCapacity = 0
	fields := fieldsOf(t, v.ValidateOccurrence(&bad))
	assert.Contains(t, fields, "EndsAt")
	assert.Contains(t, fields, "MaxCapacity")
}

func TestValidateTrainer(t *testing.T) {
	v := NewCatalogValidator(logger.Nop())

	valid := &model.UpsertTrainerRequest{
		Name:       "Dana",
		HourlyRate: decimal.RequireFromString("75.50"),
		Availability: []model.AvailabilityWindow{
			{Weekday: time.Monday, Start: "09:00", End: "12:00"},
			{Weekday: time.Monday, Start: "12:00", End: "17:00"},
			{Weekday: time.Tuesday, Start: "09:00", End: "12:00"},
		},
	}
	assert.NoError(t, v.ValidateTrainer(valid))

	tests := []struct {
		name    string
		mutate  func(r *model.UpsertTrainerRequest)
		wantErr string
	}{
		{
			name:    "zero rate",
			mutate:  func(r *model.UpsertTrainerRequest) { r.HourlyRate = decimal.Zero },
			wantErr: "HourlyRate",
		},
		{
			name: "inverted window",
			mutate: func(r *model.UpsertTrainerRequest) {
				r.Availability = []model.AvailabilityWindow{{Weekday: time.Monday, Start: "12:00", End: "09:00"}}
			},
			wantErr: "Availability[0]",
		},
		{
			name: "overlapping windows",
			mutate: func(r *model.UpsertTrainerRequest) {
				r.Availability = append(r.Availability, model.AvailabilityWindow{Weekday: time.Monday, Start: "11:00", End: "13:00"})
			},
			wantErr: "Availability[3]",
		},
		{
			name: "bad clock",
			mutate: func(r *model.UpsertTrainerRequest) {
				r.Availability = []model.AvailabilityWindow{{Weekday: time.Monday, Start: "9am", End: "12:00"}}
			},
			wantErr: "Start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := *valid
			req.Availability = append([]model.AvailabilityWindow(nil), valid.Availability...)
			tt.mutate(&req)
			assert.Contains(t, fieldsOf(t, v.ValidateTrainer(&req)), tt.wantErr)
		})
	}
}
