package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/bookings/repository"
	"studiobook/pkg/model"
)

const promotionReason = "promoted from waitlist"

// WaitlistPromoter moves wait-listed bookings into free seats, oldest
// position first. Running inside the occurrence scope makes each promotion
// happen exactly once.
type WaitlistPromoter struct{}

func (WaitlistPromoter) Promote(ctx context.Context, tx repository.LedgerTx, occ *model.Occurrence, actorID string, now time.Time) ([]*model.Booking, error) {
	confirmed, err := tx.CountByStatus(ctx, occ.ID, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}

	var promoted []*model.Booking
	for confirmed < occ.MaxCapacity {
		next, err := tx.OldestWaitListed(ctx, occ.ID)
		if errors.Is(err, bookingserrors.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		change := model.StatusChange{ActorID: actorID, Reason: promotionReason, At: now}
		if err := tx.Transition(ctx, next, model.StatusConfirmed, change); err != nil {
			return nil, err
		}
		promoted = append(promoted, next)
		confirmed++
	}
	return promoted, nil
}
