package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const ClockLayout = "15:04"

type Trainer struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	HourlyRate   decimal.Decimal      `json:"hourly_rate"`
	Availability []AvailabilityWindow `json:"availability"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// AvailabilityWindow is a weekly recurring interval in studio local time.
type AvailabilityWindow struct {
	Weekday time.Weekday `json:"weekday" bson:"weekday" validate:"min=0,max=6"`
	Start   string       `json:"start" bson:"start" validate:"required,valid_clock"`
	End     string       `json:"end" bson:"end" validate:"required,valid_clock"`
}

// On returns the concrete interval of the window on the given day.
func (w AvailabilityWindow) On(day time.Time) (time.Time, time.Time, error) {
	start, err := AtClock(day, w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := AtClock(day, w.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// WindowsOn returns the trainer's windows that apply to the weekday of day.
func (t *Trainer) WindowsOn(day time.Time) []AvailabilityWindow {
	var windows []AvailabilityWindow
	for _, w := range t.Availability {
		if w.Weekday == day.Weekday() {
			windows = append(windows, w)
		}
	}
	return windows
}

// Covers reports whether [start, end) lies inside one availability window.
func (t *Trainer) Covers(start, end time.Time) bool {
	for _, w := range t.WindowsOn(start) {
		ws, we, err := w.On(start)
		if err != nil {
			continue
		}
		if !start.Before(ws) && !end.After(we) {
			return true
		}
	}
	return false
}

// SessionPrice is the hourly rate prorated over the session length.
func (t *Trainer) SessionPrice(start, end time.Time) decimal.Decimal {
	minutes := decimal.NewFromInt(int64(end.Sub(start) / time.Minute))
	return t.HourlyRate.Mul(minutes).Div(decimal.NewFromInt(60)).Round(2)
}

// AtClock places an "HH:MM" clock time on the calendar day of day, in day's location.
func AtClock(day time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

// DayBounds returns [00:00, next 00:00) of day in its location.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type TrainerAvailability struct {
	TrainerID string               `json:"trainer_id"`
	Date      string               `json:"date"`
	Windows   []AvailabilityWindow `json:"windows"`
	Booked    []Interval           `json:"booked"`
	Free      []Interval           `json:"free"`
}

type UpsertTrainerRequest struct {
	Name         string               `json:"name" validate:"required,min=2,max=100"`
	HourlyRate   decimal.Decimal      `json:"hourly_rate" validate:"required"`
	Availability []AvailabilityWindow `json:"availability" validate:"required,min=1,max=50,dive"`
}
