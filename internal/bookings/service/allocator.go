package service

import (
	"context"
	"time"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/bookings/repository"
	"studiobook/pkg/model"
)

// Allocation is the outcome of a class booking request.
type Allocation struct {
	Status   model.BookingStatus
	Position *int
}

// CapacityAllocator decides whether a class booking is confirmed or
// wait-listed. It must run inside the occurrence scope so the confirmed
// count it reads cannot change before the insert.
type CapacityAllocator struct{}

func (CapacityAllocator) Allocate(ctx context.Context, tx repository.LedgerTx, occ *model.Occurrence, userID string, now time.Time) (Allocation, error) {
	if occ.HasStarted(now) {
		return Allocation{}, bookingserrors.ErrPastEvent
	}

	active, err := tx.HasActiveBooking(ctx, occ.ID, userID)
	if err != nil {
		return Allocation{}, err
	}
	if active {
		return Allocation{}, bookingserrors.ErrDuplicateBooking
	}

	confirmed, err := tx.CountByStatus(ctx, occ.ID, model.StatusConfirmed)
	if err != nil {
		return Allocation{}, err
	}
	if confirmed < occ.MaxCapacity {
		return Allocation{Status: model.StatusConfirmed}, nil
	}

	position, err := tx.NextWaitlistPosition(ctx, occ.ID)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{Status: model.StatusWaitListed, Position: &position}, nil
}
