package model

import "time"

type AvailabilityStatus string

const (
	AvailabilityOpen       AvailabilityStatus = "open"
	AvailabilityAlmostFull AvailabilityStatus = "almost_full"
	AvailabilityFull       AvailabilityStatus = "full"
)

// AlmostFullPercent is the share of remaining seats at or below which an
// occurrence is reported as almost full.
const AlmostFullPercent = 20

func (a AvailabilityStatus) Valid() bool {
	return a == AvailabilityOpen || a == AvailabilityAlmostFull || a == AvailabilityFull
}

// Occurrence is a dated instance of a class with a fixed seat capacity.
type Occurrence struct {
	ID              string    `json:"id" bson:"_id"`
	ClassTemplateID string    `json:"class_template_id" bson:"class_template_id"`
	ClassName       string    `json:"class_name" bson:"class_name"`
	ClassType       string    `json:"class_type" bson:"class_type"`
	Level           string    `json:"level" bson:"level"`
	StartsAt        time.Time `json:"starts_at" bson:"starts_at"`
	EndsAt          time.Time `json:"ends_at" bson:"ends_at"`
	Room            string    `json:"room,omitempty" bson:"room,omitempty"`
	InstructorID    string    `json:"instructor_id" bson:"instructor_id"`
	MaxCapacity     int       `json:"max_capacity" bson:"max_capacity"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`

	ConfirmedCount int                `json:"confirmed_count" bson:"-"`
	WaitlistCount  int                `json:"waitlist_count" bson:"-"`
	SpotsAvailable int                `json:"spots_available" bson:"-"`
	Availability   AvailabilityStatus `json:"availability_status" bson:"-"`
}

// ApplyCounts fills the derived seat fields from ledger counts.
func (o *Occurrence) ApplyCounts(confirmed, waitListed int) {
	o.ConfirmedCount = confirmed
	o.WaitlistCount = waitListed
	o.SpotsAvailable = max(0, o.MaxCapacity-confirmed)
	o.Availability = AvailabilityFor(o.MaxCapacity, confirmed)
}

func (o *Occurrence) HasStarted(now time.Time) bool {
	return !now.Before(o.StartsAt)
}

func AvailabilityFor(capacity, confirmed int) AvailabilityStatus {
	spots := capacity - confirmed
	if spots <= 0 {
		return AvailabilityFull
	}
	if spots*100 <= capacity*AlmostFullPercent {
		return AvailabilityAlmostFull
	}
	return AvailabilityOpen
}

type OccurrenceFilter struct {
	ClassType    string
	Level        string
	InstructorID string
	From         *time.Time
	To           *time.Time
	Availability AvailabilityStatus
}

type CreateOccurrenceRequest struct {
	ClassTemplateID string    `json:"class_template_id" validate:"omitempty,max=64"`
	ClassName       string    `json:"class_name" validate:"required,min=2,max=100"`
	ClassType       string    `json:"class_type" validate:"required,min=2,max=50"`
	Level           string    `json:"level" validate:"required,oneof=beginner intermediate advanced all"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	EndsAt          time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Room            string    `json:"room,omitempty" validate:"omitempty,max=50"`
	InstructorID    string    `json:"instructor_id" validate:"required,uuid"`
	MaxCapacity     int       `json:"max_capacity" validate:"required,min=1,max=500"`
}

// ListOccurrencesRequest carries the raw listing query. From and To are
// studio-local dates; To is inclusive.
type ListOccurrencesRequest struct {
	ClassType    string             `json:"class_type" validate:"omitempty,max=50"`
	Level        string             `json:"level" validate:"omitempty,oneof=beginner intermediate advanced all"`
	InstructorID string             `json:"instructor_id" validate:"omitempty,max=64"`
	From         string             `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string             `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Availability AvailabilityStatus `json:"availability" validate:"omitempty,oneof=open almost_full full"`
	Limit        int                `json:"limit"`
	Offset       int64              `json:"offset"`
}
