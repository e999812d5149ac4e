package service

import (
	"context"
	"time"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/bookings/repository"
	"studiobook/pkg/model"
)

type CancellationOutcome struct {
	Booking *model.Booking
	// Cancelled is false when the booking was already cancelled.
	Cancelled bool
	Promoted  []*model.Booking
}

// CancellationHandler cancels one booking and, for a confirmed class seat,
// hands the seat to the waitlist in the same transaction.
type CancellationHandler struct {
	Cutoff   time.Duration
	Promoter WaitlistPromoter
}

// Cancel runs inside the scope of the booking's occurrence (occ is set) or
// trainer day (occ is nil).
func (h CancellationHandler) Cancel(
	ctx context.Context,
	tx repository.LedgerTx,
	b *model.Booking,
	occ *model.Occurrence,
	actor model.Actor,
	reason string,
	now time.Time,
) (CancellationOutcome, error) {
	out := CancellationOutcome{Booking: b}

	if !actor.Elevated() && !b.IsOwnedBy(actor.UserID) {
		return out, bookingserrors.ErrForbidden
	}

	switch b.Status {
	case model.StatusCancelled:
		return out, nil
	case model.StatusCompleted:
		return out, bookingserrors.ErrAlreadyCompleted
	}

	if b.Type == model.BookingTypeClass && !actor.Elevated() {
		start := b.StartsAt
		if occ != nil {
			start = occ.StartsAt
		}
		if now.After(start.Add(-h.Cutoff)) {
			return out, bookingserrors.ErrCancellationClosed
		}
	}

	heldSeat := b.Status == model.StatusConfirmed
	change := model.StatusChange{ActorID: actor.UserID, Reason: reason, At: now}
	if err := tx.Transition(ctx, b, model.StatusCancelled, change); err != nil {
		return out, err
	}
	out.Cancelled = true

	if b.Type == model.BookingTypeClass && heldSeat && occ != nil {
		promoted, err := h.Promoter.Promote(ctx, tx, occ, actor.UserID, now)
		if err != nil {
			return out, err
		}
		out.Promoted = promoted
	}
	return out, nil
}
