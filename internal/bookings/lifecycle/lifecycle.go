// Package lifecycle holds the booking status transition table. Every status
// write in the ledger is validated here.
package lifecycle

import (
	"fmt"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/pkg/model"
)

var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:    {model.StatusConfirmed, model.StatusWaitListed},
	model.StatusWaitListed: {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:  {model.StatusCancelled, model.StatusCompleted},
	model.StatusCancelled:  nil,
	model.StatusCompleted:  nil,
}

func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns ErrInvalidTransition, wrapped with both statuses, when
// from -> to is not allowed.
func Validate(from, to model.BookingStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", bookingserrors.ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidateInitial checks the status a new booking is created with. A new
// booking is created as if it had just left pending.
func ValidateInitial(status model.BookingStatus) error {
	return Validate(model.StatusPending, status)
}

// Next lists the statuses reachable from s.
func Next(s model.BookingStatus) []model.BookingStatus {
	out := make([]model.BookingStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
