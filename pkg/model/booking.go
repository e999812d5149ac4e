package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusWaitListed BookingStatus = "wait_listed"
	StatusCancelled  BookingStatus = "cancelled"
	StatusCompleted  BookingStatus = "completed"
)

// ActiveStatuses are the statuses that hold a seat or a waitlist position.
var ActiveStatuses = []BookingStatus{StatusConfirmed, StatusWaitListed}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWaitListed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s BookingStatus) IsActive() bool {
	return s == StatusConfirmed || s == StatusWaitListed
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type BookingType string

const (
	BookingTypeClass          BookingType = "class"
	BookingTypeTrainerSession BookingType = "trainer_session"
)

func (t BookingType) Valid() bool {
	return t == BookingTypeClass || t == BookingTypeTrainerSession
}

type Booking struct {
	ID                 string           `json:"id"`
	Type               BookingType      `json:"booking_type"`
	UserID             string           `json:"user_id"`
	OccurrenceID       string           `json:"occurrence_id,omitempty"`
	TrainerID          string           `json:"trainer_id,omitempty"`
	StartsAt           time.Time        `json:"starts_at"`
	EndsAt             time.Time        `json:"ends_at"`
	SessionType        string           `json:"session_type,omitempty"`
	Location           string           `json:"location,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	Status             BookingStatus    `json:"status"`
	WaitlistPosition   *int             `json:"waitlist_position,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
	CancelledBy        string           `json:"cancelled_by,omitempty"`
	History            []StatusChange   `json:"history,omitempty"`
}

// StatusChange is one entry of a booking's status history.
type StatusChange struct {
	From    BookingStatus `json:"from,omitempty" bson:"from,omitempty"`
	To      BookingStatus `json:"to" bson:"to"`
	ActorID string        `json:"actor_id" bson:"actor_id"`
	Reason  string        `json:"reason,omitempty" bson:"reason,omitempty"`
	At      time.Time     `json:"at" bson:"at"`
}

func (b *Booking) IsOwnedBy(userID string) bool {
	return b.UserID == userID
}

type BookClassRequest struct {
	OccurrenceID string      `json:"occurrence_id" validate:"required,uuid"`
	BookingType  BookingType `json:"booking_type" validate:"required,eq=class"`
	Notes        string      `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type BookTrainerSessionRequest struct {
	TrainerID   string `json:"trainer_id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required,valid_clock"`
	EndTime     string `json:"end_time" validate:"required,valid_clock"`
	SessionType string `json:"session_type" validate:"required,min=2,max=50"`
	Location    string `json:"location,omitempty" validate:"omitempty,max=100"`
	Notes       string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type UpdateCapacityRequest struct {
	MaxCapacity int `json:"max_capacity" validate:"required,min=1,max=500"`
}

// BookingResult is returned by booking and cancellation operations.
type BookingResult struct {
	Status           BookingStatus    `json:"status"`
	BookingID        string           `json:"booking_id"`
	WaitlistPosition *int             `json:"waitlist_position,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
}

type BookingScope string

const (
	ScopeUpcoming BookingScope = "upcoming"
	ScopePast     BookingScope = "past"
)

func (s BookingScope) Valid() bool {
	return s == ScopeUpcoming || s == ScopePast
}
