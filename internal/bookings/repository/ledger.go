package repository

import (
	"context"
	"fmt"
	"time"

	"studiobook/internal/bookings/lifecycle"
	"studiobook/pkg/model"
)

// OccurrenceScopeFunc runs while the occurrence's write lock is held. occ is
// read inside the same transaction.
type OccurrenceScopeFunc func(ctx context.Context, tx LedgerTx, occ *model.Occurrence) error

// TrainerScopeFunc runs while the (trainer, day) write lock is held.
type TrainerScopeFunc func(ctx context.Context, tx LedgerTx, trainer *model.Trainer) error

// Ledger is the durable record of bookings and their status history. All
// mutations happen inside a scope; a scope is a single transaction that
// serializes every writer of the same occurrence or trainer day. Scopes are
// replayed on write conflicts, so scope functions must not keep state
// between attempts.
type Ledger interface {
	InOccurrenceScope(ctx context.Context, occurrenceID string, fn OccurrenceScopeFunc) error
	InTrainerScope(ctx context.Context, trainerID string, day time.Time, fn TrainerScopeFunc) error

	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string, scope model.BookingScope, now time.Time) ([]*model.Booking, error)
	FindElapsed(ctx context.Context, endedBefore time.Time, limit int) ([]*model.Booking, error)
}

// LedgerTx is the set of reads and writes available inside a scope.
type LedgerTx interface {
	FindBooking(ctx context.Context, id string) (*model.Booking, error)
	HasActiveBooking(ctx context.Context, occurrenceID, userID string) (bool, error)
	CountByStatus(ctx context.Context, occurrenceID string, status model.BookingStatus) (int, error)
	NextWaitlistPosition(ctx context.Context, occurrenceID string) (int, error)
	OldestWaitListed(ctx context.Context, occurrenceID string) (*model.Booking, error)
	TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]*model.Booking, error)

	Insert(ctx context.Context, booking *model.Booking, change model.StatusChange) error
	Transition(ctx context.Context, booking *model.Booking, to model.BookingStatus, change model.StatusChange) error
	SetCapacity(ctx context.Context, occurrenceID string, capacity int) error
}

// TrainerLockKey names the slot lock that serializes one trainer's day.
func TrainerLockKey(trainerID string, day time.Time) string {
	return fmt.Sprintf("trainer:%s:%s", trainerID, day.Format(time.DateOnly))
}

// prepareInsert validates the initial status and stamps the booking.
func prepareInsert(b *model.Booking, change *model.StatusChange) error {
	if err := lifecycle.ValidateInitial(b.Status); err != nil {
		return err
	}
	if b.Status != model.StatusWaitListed {
		b.WaitlistPosition = nil
	}
	change.From = model.StatusPending
	change.To = b.Status
	change.At = change.At.UTC()
	b.CreatedAt = change.At
	b.UpdatedAt = change.At
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()
	return nil
}

// applyTransition validates from -> to and mutates b to the post-transition
// state. The caller persists b conditioned on the previous status.
func applyTransition(b *model.Booking, to model.BookingStatus, change *model.StatusChange) (model.BookingStatus, error) {
	from := b.Status
	if err := lifecycle.Validate(from, to); err != nil {
		return from, err
	}

	change.From = from
	change.To = to
	change.At = change.At.UTC()

	b.Status = to
	b.UpdatedAt = change.At
	b.WaitlistPosition = nil
	if to == model.StatusCancelled {
		at := change.At
		b.CancelledAt = &at
		b.CancellationReason = change.Reason
		b.CancelledBy = change.ActorID
	}
	b.History = append(b.History, *change)
	return from, nil
}
