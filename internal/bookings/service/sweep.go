package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiobook/internal/bookings/repository"
	"studiobook/internal/notify"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

const completedReason = "session ended"

// CompleteElapsed moves confirmed bookings whose session has ended to
// completed. Each booking is completed in its own scope; a failure is logged
// and the sweep continues with the next one.
func (s *bookingService) CompleteElapsed(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.CompleteElapsed")
	defer span.End()

	now := s.now().UTC()
	due, err := s.ledger.FindElapsed(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, s.fail(ctx, span, "Failed to find elapsed bookings", err)
	}

	var (
		errs   []error
		events []notify.Event
	)
	for _, candidate := range due {
		done, err := s.complete(ctx, candidate, now)
		if err != nil {
			s.cfg.Log.Ctx(ctx).Error("Failed to complete booking", "booking_id", candidate.ID, "error", err)
			errs = append(errs, fmt.Errorf("booking %s: %w", candidate.ID, err))
			continue
		}
		if done != nil {
			events = append(events, notify.NewEvent(notify.EventCompleted, done, model.SystemActorID, now))
		}
	}
	s.events.Dispatch(events...)

	if len(events) > 0 {
		s.cfg.Log.Ctx(ctx).Info("Elapsed bookings completed", "completed", len(events), "failed", len(errs))
	}
	return len(events), errors.Join(errs...)
}

// complete returns nil, nil when the booking left confirmed since it was listed.
func (s *bookingService) complete(ctx context.Context, candidate *model.Booking, now time.Time) (*model.Booking, error) {
	var done *model.Booking
	fn := func(ctx context.Context, tx repository.LedgerTx) error {
		done = nil
		b, err := tx.FindBooking(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if b.Status != model.StatusConfirmed {
			return nil
		}
		change := model.StatusChange{ActorID: model.SystemActorID, Reason: completedReason, At: now}
		if err := tx.Transition(ctx, b, model.StatusCompleted, change); err != nil {
			return err
		}
		done = b
		return nil
	}

	var err error
	if candidate.Type == model.BookingTypeClass {
		err = s.ledger.InOccurrenceScope(ctx, candidate.OccurrenceID, func(ctx context.Context, tx repository.LedgerTx, _ *model.Occurrence) error {
			return fn(ctx, tx)
		})
	} else {
		day := candidate.StartsAt.In(s.cfg.StudioLocation())
		err = s.ledger.InTrainerScope(ctx, candidate.TrainerID, day, func(ctx context.Context, tx repository.LedgerTx, _ *model.Trainer) error {
			return fn(ctx, tx)
		})
	}
	return done, err
}

// Sweeper runs CompleteElapsed on a fixed interval until its context ends.
type Sweeper struct {
	service  BookingService
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(service BookingService, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{service: service, interval: interval, log: log}
}

func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Sweeper started", "interval", w.interval)
	for {
		w.tick(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *Sweeper) tick(ctx context.Context) {
	// keep draining while full batches come back
	for ctx.Err() == nil {
		n, err := w.service.CompleteElapsed(ctx)
		if err != nil {
			w.log.Warn("Sweep finished with errors", "completed", n, "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
}
