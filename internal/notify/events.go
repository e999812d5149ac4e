// Package notify delivers booking lifecycle events after the ledger commit.
// Delivery is at-least-once; every event carries a deterministic id derived
// from the booking and event type so consumers can deduplicate.
package notify

import (
	"time"

	"github.com/google/uuid"

	"studiobook/pkg/model"
)

type EventType string

const (
	EventConfirmed  EventType = "booking.confirmed"
	EventWaitListed EventType = "booking.wait_listed"
	EventPromoted   EventType = "booking.promoted"
	EventCancelled  EventType = "booking.cancelled"
	EventCompleted  EventType = "booking.completed"
)

var eventNamespace = uuid.MustParse("6f1c2a4e-8d0b-4f5e-9a57-2b9f3e6c1d80")

type Event struct {
	ID               string              `json:"event_id"`
	Type             EventType           `json:"event_type"`
	BookingID        string              `json:"booking_id"`
	BookingType      model.BookingType   `json:"booking_type"`
	UserID           string              `json:"user_id"`
	OccurrenceID     string              `json:"occurrence_id,omitempty"`
	TrainerID        string              `json:"trainer_id,omitempty"`
	Status           model.BookingStatus `json:"status"`
	WaitlistPosition *int                `json:"waitlist_position,omitempty"`
	StartsAt         time.Time           `json:"starts_at"`
	EndsAt           time.Time           `json:"ends_at"`
	ActorID          string              `json:"actor_id"`
	OccurredAt       time.Time           `json:"occurred_at"`
}

// EventID is stable for a (booking, event type) pair. A booking reaches each
// status at most once, so replays of the same change share an id.
func EventID(bookingID string, t EventType) string {
	return uuid.NewSHA1(eventNamespace, []byte(bookingID+":"+string(t))).String()
}

func NewEvent(t EventType, b *model.Booking, actorID string, at time.Time) Event {
	return Event{
		ID:               EventID(b.ID, t),
		Type:             t,
		BookingID:        b.ID,
		BookingType:      b.Type,
		UserID:           b.UserID,
		OccurrenceID:     b.OccurrenceID,
		TrainerID:        b.TrainerID,
		Status:           b.Status,
		WaitlistPosition: b.WaitlistPosition,
		StartsAt:         b.StartsAt,
		EndsAt:           b.EndsAt,
		ActorID:          actorID,
		OccurredAt:       at.UTC(),
	}
}

// CreatedEvent maps the initial status of a new booking to its event.
func CreatedEvent(b *model.Booking, actorID string, at time.Time) Event {
	if b.Status == model.StatusWaitListed {
		return NewEvent(EventWaitListed, b, actorID, at)
	}
	return NewEvent(EventConfirmed, b, actorID, at)
}

// PartitionKey keeps the events of one occurrence or one trainer in order.
func (e Event) PartitionKey() string {
	switch {
	case e.OccurrenceID != "":
		return e.OccurrenceID
	case e.TrainerID != "":
		return e.TrainerID
	}
	return e.BookingID
}
