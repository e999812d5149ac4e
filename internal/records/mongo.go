package records

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studiobook/pkg/model"
)

const (
	OccurrencesCollection = "Occurrences"
	TrainersCollection    = "Trainers"
	BookingsCollection    = "Bookings"
	SlotLocksCollection   = "Slot_locks"
)

type BookingDocument struct {
	ID                 string                `bson:"_id"`
	Type               model.BookingType     `bson:"booking_type"`
	UserID             string                `bson:"user_id"`
	OccurrenceID       string                `bson:"occurrence_id,omitempty"`
	TrainerID          string                `bson:"trainer_id,omitempty"`
	StartsAt           time.Time             `bson:"starts_at"`
	EndsAt             time.Time             `bson:"ends_at"`
	SessionType        string                `bson:"session_type,omitempty"`
	Location           string                `bson:"location,omitempty"`
	Notes              string                `bson:"notes,omitempty"`
	Price              *primitive.Decimal128 `bson:"price,omitempty"`
	Status             model.BookingStatus   `bson:"status"`
	WaitlistPosition   *int                  `bson:"waitlist_position"`
	CreatedAt          time.Time             `bson:"created_at"`
	UpdatedAt          time.Time             `bson:"updated_at"`
	CancelledAt        *time.Time            `bson:"cancelled_at,omitempty"`
	CancellationReason string                `bson:"cancellation_reason,omitempty"`
	CancelledBy        string                `bson:"cancelled_by,omitempty"`
	History            []model.StatusChange  `bson:"history"`
}

func NewBookingDocument(b *model.Booking) (*BookingDocument, error) {
	doc := &BookingDocument{
		ID:                 b.ID,
		Type:               b.Type,
		UserID:             b.UserID,
		OccurrenceID:       b.OccurrenceID,
		TrainerID:          b.TrainerID,
		StartsAt:           b.StartsAt.UTC(),
		EndsAt:             b.EndsAt.UTC(),
		SessionType:        b.SessionType,
		Location:           b.Location,
		Notes:              b.Notes,
		Status:             b.Status,
		WaitlistPosition:   b.WaitlistPosition,
		CreatedAt:          b.CreatedAt.UTC(),
		UpdatedAt:          b.UpdatedAt.UTC(),
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
		CancelledBy:        b.CancelledBy,
		History:            b.History,
	}
	if b.Price != nil {
		p, err := ToDecimal128(*b.Price)
		if err != nil {
			return nil, err
		}
		doc.Price = &p
	}
	if doc.History == nil {
		doc.History = []model.StatusChange{}
	}
	return doc, nil
}

func (d *BookingDocument) Model() (*model.Booking, error) {
	b := &model.Booking{
		ID:                 d.ID,
		Type:               d.Type,
		UserID:             d.UserID,
		OccurrenceID:       d.OccurrenceID,
		TrainerID:          d.TrainerID,
		StartsAt:           d.StartsAt.UTC(),
		EndsAt:             d.EndsAt.UTC(),
		SessionType:        d.SessionType,
		Location:           d.Location,
		Notes:              d.Notes,
		Status:             d.Status,
		WaitlistPosition:   d.WaitlistPosition,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		CancelledAt:        d.CancelledAt,
		CancellationReason: d.CancellationReason,
		CancelledBy:        d.CancelledBy,
		History:            d.History,
	}
	if d.Price != nil {
		p, err := FromDecimal128(*d.Price)
		if err != nil {
			return nil, err
		}
		b.Price = &p
	}
	return b, nil
}

type TrainerDocument struct {
	ID           string                     `bson:"_id"`
	Name         string                     `bson:"name"`
	HourlyRate   primitive.Decimal128       `bson:"hourly_rate"`
	Availability []model.AvailabilityWindow `bson:"availability"`
	CreatedAt    time.Time                  `bson:"created_at"`
	UpdatedAt    time.Time                  `bson:"updated_at"`
}

func NewTrainerDocument(t *model.Trainer) (*TrainerDocument, error) {
	rate, err := ToDecimal128(t.HourlyRate)
	if err != nil {
		return nil, err
	}
	return &TrainerDocument{
		ID:           t.ID,
		Name:         t.Name,
		HourlyRate:   rate,
		Availability: t.Availability,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}, nil
}

func (d *TrainerDocument) Model() (*model.Trainer, error) {
	rate, err := FromDecimal128(d.HourlyRate)
	if err != nil {
		return nil, err
	}
	return &model.Trainer{
		ID:           d.ID,
		Name:         d.Name,
		HourlyRate:   rate,
		Availability: d.Availability,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func ToDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("invalid decimal %s: %w", d.String(), err)
	}
	return out, nil
}

func FromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %s: %w", d.String(), err)
	}
	return out, nil
}
