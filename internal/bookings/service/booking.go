package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/bookings/repository"
	"studiobook/internal/bookings/validator"
	"studiobook/internal/notify"
	"studiobook/pkg/config"
	"studiobook/pkg/db"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/model"
	"studiobook/pkg/sanitizer"
	"studiobook/pkg/validation"
)

const (
	tracerName = "studiobook/bookings"

	bookedReason    = "booked"
	cancelledReason = "cancelled"
)

type BookingService interface {
	BookClass(ctx context.Context, actor model.Actor, req *model.BookClassRequest) (*model.BookingResult, error)
	BookTrainerSession(ctx context.Context, actor model.Actor, req *model.BookTrainerSessionRequest) (*model.BookingResult, error)
	CancelBooking(ctx context.Context, actor model.Actor, bookingID string, req *model.CancelBookingRequest) (*model.BookingResult, error)
	GetBooking(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	GetUserBookings(ctx context.Context, actor model.Actor, userID string, scope model.BookingScope) ([]*model.Booking, error)
	UpdateCapacity(ctx context.Context, actor model.Actor, occurrenceID string, req *model.UpdateCapacityRequest) (*model.Occurrence, error)
	CompleteElapsed(ctx context.Context) (int, error)
}

// EventDispatcher receives lifecycle events once the ledger has committed.
type EventDispatcher interface {
	Dispatch(events ...notify.Event)
}

type Option func(*bookingService)

// WithClock replaces the wall clock used for past-event and cutoff checks.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

type bookingService struct {
	ledger    repository.Ledger
	validator *validator.BookingValidator
	events    EventDispatcher
	cfg       *config.Config

	allocator CapacityAllocator
	conflicts ConflictChecker
	promoter  WaitlistPromoter
	canceller CancellationHandler

	tracer trace.Tracer
	now    func() time.Time
}

func NewBookingService(
	ledger repository.Ledger,
	validator *validator.BookingValidator,
	events EventDispatcher,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	s := &bookingService{
		ledger:    ledger,
		validator: validator,
		events:    events,
		cfg:       cfg,
		canceller: CancellationHandler{Cutoff: cfg.CancellationCutoff},
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) BookClass(ctx context.Context, actor model.Actor, req *model.BookClassRequest) (*model.BookingResult, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.BookClass", trace.WithAttributes(
		attribute.String("occurrence_id", req.OccurrenceID),
		attribute.String("user_id", actor.UserID),
	))
	defer span.End()

	req.Notes = sanitizer.NormalizeNotes(req.Notes)
	if err := s.validator.ValidateBookClass(req); err != nil {
		return nil, s.invalid(ctx, span, "Class booking validation failed", err)
	}

	now := s.now().UTC()
	var booking *model.Booking
	err := s.ledger.InOccurrenceScope(ctx, req.OccurrenceID, func(ctx context.Context, tx repository.LedgerTx, occ *model.Occurrence) error {
		alloc, err := s.allocator.Allocate(ctx, tx, occ, actor.UserID, now)
		if err != nil {
			return err
		}

		b := &model.Booking{
			Type:             model.BookingTypeClass,
			UserID:           actor.UserID,
			OccurrenceID:     occ.ID,
			StartsAt:         occ.StartsAt,
			EndsAt:           occ.EndsAt,
			SessionType:      occ.ClassType,
			Location:         occ.Room,
			Notes:            req.Notes,
			Status:           alloc.Status,
			WaitlistPosition: alloc.Position,
		}
		if err := tx.Insert(ctx, b, model.StatusChange{ActorID: actor.UserID, Reason: bookedReason, At: now}); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if errors.Is(err, bookingserrors.ErrDuplicateBooking) {
		err = apperrors.DuplicateBooking(req.OccurrenceID)
	}
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to book class", err, "occurrence_id", req.OccurrenceID, "user_id", actor.UserID)
	}

	s.events.Dispatch(notify.CreatedEvent(booking, actor.UserID, now))
	span.SetAttributes(attribute.String("status", string(booking.Status)))
	s.cfg.Log.Ctx(ctx).Info("Class booked",
		"booking_id", booking.ID,
		"occurrence_id", booking.OccurrenceID,
		"user_id", booking.UserID,
		"status", booking.Status,
	)
	return resultOf(booking), nil
}

func (s *bookingService) BookTrainerSession(ctx context.Context, actor model.Actor, req *model.BookTrainerSessionRequest) (*model.BookingResult, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.BookTrainerSession", trace.WithAttributes(
		attribute.String("trainer_id", req.TrainerID),
		attribute.String("user_id", actor.UserID),
	))
	defer span.End()

	req.SessionType = sanitizer.SanitizeLabel(req.SessionType)
	req.Location = sanitizer.NormalizeName(req.Location)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
	if err := s.validator.ValidateTrainerSession(req); err != nil {
		return nil, s.invalid(ctx, span, "Trainer session validation failed", err)
	}

	day, err := time.ParseInLocation(time.DateOnly, req.Date, s.cfg.StudioLocation())
	if err != nil {
		return nil, s.invalid(ctx, span, "Trainer session validation failed", err)
	}
	start, err := model.AtClock(day, req.StartTime)
	if err != nil {
		return nil, s.invalid(ctx, span, "Trainer session validation failed", err)
	}
	end, err := model.AtClock(day, req.EndTime)
	if err != nil {
		return nil, s.invalid(ctx, span, "Trainer session validation failed", err)
	}

	now := s.now().UTC()
	if !now.Before(start) {
		return nil, s.fail(ctx, span, "Failed to book trainer session", bookingserrors.ErrPastEvent, "trainer_id", req.TrainerID)
	}

	var booking *model.Booking
	err = s.ledger.InTrainerScope(ctx, req.TrainerID, day, func(ctx context.Context, tx repository.LedgerTx, trainer *model.Trainer) error {
		if err := s.conflicts.Check(ctx, tx, trainer, start, end); err != nil {
			return err
		}

		price := trainer.SessionPrice(start, end)
		b := &model.Booking{
			Type:        model.BookingTypeTrainerSession,
			UserID:      actor.UserID,
			TrainerID:   trainer.ID,
			StartsAt:    start,
			EndsAt:      end,
			SessionType: req.SessionType,
			Location:    req.Location,
			Notes:       req.Notes,
			Price:       &price,
			Status:      model.StatusConfirmed,
		}
		if err := tx.Insert(ctx, b, model.StatusChange{ActorID: actor.UserID, Reason: bookedReason, At: now}); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to book trainer session", err,
			"trainer_id", req.TrainerID,
			"date", req.Date,
			"start_time", req.StartTime,
			"end_time", req.EndTime,
		)
	}

	s.events.Dispatch(notify.CreatedEvent(booking, actor.UserID, now))
	s.cfg.Log.Ctx(ctx).Info("Trainer session booked",
		"booking_id", booking.ID,
		"trainer_id", booking.TrainerID,
		"user_id", booking.UserID,
		"starts_at", booking.StartsAt,
		"price", booking.Price,
	)
	return resultOf(booking), nil
}

// CancelBooking is idempotent: cancelling a cancelled booking succeeds and
// changes nothing. The booking is re-read inside the scope so concurrent
// cancels of one confirmed seat promote exactly once.
func (s *bookingService) CancelBooking(ctx context.Context, actor model.Actor, bookingID string, req *model.CancelBookingRequest) (*model.BookingResult, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.CancelBooking", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("actor_id", actor.UserID),
	))
	defer span.End()

	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	reason := cancelledReason
	if req != nil {
		req.Reason = sanitizer.NormalizeNotes(req.Reason)
		if err := s.validator.ValidateCancel(req); err != nil {
			return nil, s.invalid(ctx, span, "Cancellation validation failed", err)
		}
		if req.Reason != "" {
			reason = req.Reason
		}
	}

	existing, err := s.ledger.FindByID(ctx, bookingID)
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to load booking", err, "booking_id", bookingID)
	}
	if !actor.Elevated() && !existing.IsOwnedBy(actor.UserID) {
		return nil, s.fail(ctx, span, "Cancellation rejected", bookingserrors.ErrForbidden, "booking_id", bookingID, "actor_id", actor.UserID)
	}

	now := s.now().UTC()
	var out CancellationOutcome
	cancel := func(ctx context.Context, tx repository.LedgerTx, occ *model.Occurrence) error {
		out = CancellationOutcome{}
		b, err := tx.FindBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		out, err = s.canceller.Cancel(ctx, tx, b, occ, actor, reason, now)
		return err
	}

	if existing.Type == model.BookingTypeClass {
		err = s.ledger.InOccurrenceScope(ctx, existing.OccurrenceID, func(ctx context.Context, tx repository.LedgerTx, occ *model.Occurrence) error {
			return cancel(ctx, tx, occ)
		})
	} else {
		day := existing.StartsAt.In(s.cfg.StudioLocation())
		err = s.ledger.InTrainerScope(ctx, existing.TrainerID, day, func(ctx context.Context, tx repository.LedgerTx, _ *model.Trainer) error {
			return cancel(ctx, tx, nil)
		})
	}
	if errors.Is(err, bookingserrors.ErrAlreadyCompleted) {
		err = apperrors.AlreadyCompleted(bookingID)
	}
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to cancel booking", err, "booking_id", bookingID, "actor_id", actor.UserID)
	}

	if !out.Cancelled {
		s.cfg.Log.Ctx(ctx).Info("Booking already cancelled", "booking_id", bookingID)
		return resultOf(out.Booking), nil
	}

	events := []notify.Event{notify.NewEvent(notify.EventCancelled, out.Booking, actor.UserID, now)}
	for _, p := range out.Promoted {
		events = append(events, notify.NewEvent(notify.EventPromoted, p, actor.UserID, now))
	}
	s.events.Dispatch(events...)

	span.SetAttributes(attribute.Int("promoted", len(out.Promoted)))
	s.cfg.Log.Ctx(ctx).Info("Booking cancelled",
		"booking_id", bookingID,
		"actor_id", actor.UserID,
		"reason", reason,
		"promoted", len(out.Promoted),
	)
	return resultOf(out.Booking), nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	b, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Ctx(ctx).Error("Failed to retrieve booking", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if !actor.CanAccessUser(b.UserID) {
		return nil, apperrors.Forbidden("You may only view your own bookings")
	}
	return b, nil
}

// GetUserBookings lists upcoming bookings soonest first, or past bookings
// most recent first. A booking is past once it has ended.
func (s *bookingService) GetUserBookings(ctx context.Context, actor model.Actor, userID string, scope model.BookingScope) ([]*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}
	if scope == "" {
		scope = model.ScopeUpcoming
	}
	if !scope.Valid() {
		return nil, apperrors.InvalidInput("scope must be one of [upcoming, past]")
	}
	if !actor.CanAccessUser(userID) {
		return nil, apperrors.Forbidden("You may only list your own bookings")
	}

	bookings, err := s.ledger.FindByUser(ctx, userID, scope, s.now().UTC())
	if err != nil {
		s.cfg.Log.Ctx(ctx).Error("Failed to list user bookings", "user_id", userID, "scope", scope, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

// UpdateCapacity changes an occurrence's seat count. Growing the class
// promotes from the waitlist in the same transaction.
func (s *bookingService) UpdateCapacity(ctx context.Context, actor model.Actor, occurrenceID string, req *model.UpdateCapacityRequest) (*model.Occurrence, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.UpdateCapacity", trace.WithAttributes(
		attribute.String("occurrence_id", occurrenceID),
		attribute.Int("max_capacity", req.MaxCapacity),
	))
	defer span.End()

	if !actor.Elevated() {
		return nil, apperrors.Forbidden("Only staff may change class capacity")
	}
	if err := s.validator.ValidateCapacity(req); err != nil {
		return nil, s.invalid(ctx, span, "Capacity validation failed", err)
	}

	now := s.now().UTC()
	var (
		updated  *model.Occurrence
		promoted []*model.Booking
	)
	err := s.ledger.InOccurrenceScope(ctx, occurrenceID, func(ctx context.Context, tx repository.LedgerTx, occ *model.Occurrence) error {
		confirmed, err := tx.CountByStatus(ctx, occ.ID, model.StatusConfirmed)
		if err != nil {
			return err
		}
		if req.MaxCapacity < confirmed {
			return bookingserrors.ErrCapacityBelowConfirmed
		}
		if err := tx.SetCapacity(ctx, occ.ID, req.MaxCapacity); err != nil {
			return err
		}
		occ.MaxCapacity = req.MaxCapacity

		promoted, err = s.promoter.Promote(ctx, tx, occ, actor.UserID, now)
		if err != nil {
			return err
		}
		waiting, err := tx.CountByStatus(ctx, occ.ID, model.StatusWaitListed)
		if err != nil {
			return err
		}
		occ.ApplyCounts(confirmed+len(promoted), waiting)
		updated = occ
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to update capacity", err, "occurrence_id", occurrenceID)
	}

	events := make([]notify.Event, 0, len(promoted))
	for _, p := range promoted {
		events = append(events, notify.NewEvent(notify.EventPromoted, p, actor.UserID, now))
	}
	s.events.Dispatch(events...)

	s.cfg.Log.Ctx(ctx).Info("Occurrence capacity updated",
		"occurrence_id", occurrenceID,
		"max_capacity", req.MaxCapacity,
		"promoted", len(promoted),
	)
	return updated, nil
}

func (s *bookingService) invalid(ctx context.Context, span trace.Span, msg string, err error) error {
	span.SetStatus(codes.Error, apperrors.CodeValidation)
	s.cfg.Log.Ctx(ctx).Warn(msg, "error", err)

	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(msg, verrs.Details())
	}
	return apperrors.Validation(msg, map[string]any{"error": err.Error()})
}

// fail maps err to an AppError, records it on the span and logs it. Server
// faults log at error level, rejected requests at warn.
func (s *bookingService) fail(ctx context.Context, span trace.Span, msg string, err error, args ...any) error {
	appErr := toAppError(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, appErr.Code)

	args = append(args, "code", appErr.Code, "error", err)
	log := s.cfg.Log.Ctx(ctx)
	if appErr.HTTPStatus >= 500 {
		log.Error(msg, args...)
	} else {
		log.Warn(msg, args...)
	}
	return appErr
}

func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, db.ErrLockTimeout):
		return apperrors.LockTimeout(err)
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFound("Booking")
	case errors.Is(err, bookingserrors.ErrOccurrenceNotFound):
		return apperrors.NotFound("Occurrence")
	case errors.Is(err, bookingserrors.ErrTrainerNotFound):
		return apperrors.NotFound("Trainer")
	case errors.Is(err, bookingserrors.ErrPastEvent):
		return apperrors.PastEvent("The event has already started")
	case errors.Is(err, bookingserrors.ErrCancellationClosed):
		return apperrors.PastEvent("The cancellation window for this class has closed")
	case errors.Is(err, bookingserrors.ErrDuplicateBooking):
		return apperrors.DuplicateBooking("")
	case errors.Is(err, bookingserrors.ErrTimeConflict):
		return apperrors.TrainerUnavailable("The trainer already has an appointment at that time")
	case errors.Is(err, bookingserrors.ErrOutsideAvailability):
		return apperrors.TrainerUnavailable("The trainer is not available at that time")
	case errors.Is(err, bookingserrors.ErrAlreadyCompleted):
		return apperrors.AlreadyCompleted("")
	case errors.Is(err, bookingserrors.ErrInvalidTransition), errors.Is(err, bookingserrors.ErrStaleStatus):
		return apperrors.InvalidTransition("The booking cannot move to that status", err)
	case errors.Is(err, bookingserrors.ErrForbidden):
		return apperrors.Forbidden("You may only act on your own bookings")
	case errors.Is(err, bookingserrors.ErrCapacityBelowConfirmed):
		return apperrors.Conflict("Capacity cannot be lower than the number of confirmed bookings")
	}
	return apperrors.Internal("An unexpected error occurred", err)
}

func resultOf(b *model.Booking) *model.BookingResult {
	return &model.BookingResult{
		Status:           b.Status,
		BookingID:        b.ID,
		WaitlistPosition: b.WaitlistPosition,
		Price:            b.Price,
	}
}
