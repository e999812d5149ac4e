package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrOccurrenceNotFound = errors.New("occurrence not found")

	ErrTrainerNotFound = errors.New("trainer not found")

	ErrPastEvent = errors.New("event has already started")

	ErrCancellationClosed = errors.New("cancellation window has closed")

	ErrDuplicateBooking = errors.New("user already holds an active booking for this occurrence")

	ErrTimeConflict = errors.New("appointment overlaps an existing appointment")

	ErrOutsideAvailability = errors.New("appointment is outside the trainer's availability")

	ErrAlreadyCompleted = errors.New("booking is already completed")

	ErrForbidden = errors.New("actor may not act on this booking")

	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrStaleStatus means the stored status no longer matches the status the
	// transition was computed from.
	ErrStaleStatus = errors.New("booking status changed concurrently")

	ErrCapacityBelowConfirmed = errors.New("capacity cannot drop below confirmed bookings")
)
