package service

import (
	"context"
	"time"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/bookings/repository"
	"studiobook/pkg/model"
)

// ConflictChecker rejects trainer sessions outside the trainer's weekly
// windows or overlapping another non-cancelled appointment. It must run
// inside the (trainer, day) scope.
type ConflictChecker struct{}

func (ConflictChecker) Check(ctx context.Context, tx repository.LedgerTx, trainer *model.Trainer, start, end time.Time) error {
	if !trainer.Covers(start, end) {
		return bookingserrors.ErrOutsideAvailability
	}

	dayStart, dayEnd := model.DayBounds(start)
	existing, err := tx.TrainerAppointments(ctx, trainer.ID, dayStart, dayEnd)
	if err != nil {
		return err
	}
	if findConflict(existing, start, end) != nil {
		return bookingserrors.ErrTimeConflict
	}
	return nil
}

// findConflict returns the first appointment overlapping [start, end).
// Touching intervals do not overlap.
func findConflict(existing []*model.Booking, start, end time.Time) *model.Booking {
	for _, b := range existing {
		if b.Status == model.StatusCancelled {
			continue
		}
		if start.Before(b.EndsAt) && end.After(b.StartsAt) {
			return b
		}
	}
	return nil
}
