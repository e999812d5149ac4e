package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	catalogerrors "studiobook/internal/catalog/errors"
	"studiobook/internal/catalog/repository"
	"studiobook/internal/catalog/validator"
	"studiobook/pkg/config"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/model"
	"studiobook/pkg/sanitizer"
	"studiobook/pkg/validation"
)

type CatalogService interface {
	ListOccurrences(ctx context.Context, req *model.ListOccurrencesRequest) ([]*model.Occurrence, int64, error)
	GetOccurrence(ctx context.Context, id string) (*model.Occurrence, error)
	CreateOccurrence(ctx context.Context, actor model.Actor, req *model.CreateOccurrenceRequest) (*model.Occurrence, error)
	UpsertTrainer(ctx context.Context, actor model.Actor, id string, req *model.UpsertTrainerRequest) (*model.Trainer, bool, error)
	GetTrainerAvailability(ctx context.Context, trainerID, date string) (*model.TrainerAvailability, error)
}

type catalogService struct {
	repo      repository.CatalogRepository
	validator *validator.CatalogValidator
	cfg       *config.Config
}

func NewCatalogService(
	repo repository.CatalogRepository,
	validator *validator.CatalogValidator,
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

// ListOccurrences runs the page and total count queries concurrently.
func (s *catalogService) ListOccurrences(ctx context.Context, req *model.ListOccurrencesRequest) ([]*model.Occurrence, int64, error) {
	req.ClassType = sanitizer.SanitizeLabel(req.ClassType)
	req.InstructorID = sanitizer.TrimAndNormalize(req.InstructorID)
	if err := s.validator.ValidateListRequest(req); err != nil {
		return nil, 0, s.invalid(ctx, "Occurrence filter validation failed", err)
	}

	filter, err := s.filterFor(req)
	if err != nil {
		return nil, 0, s.invalid(ctx, "Occurrence filter validation failed", err)
	}
	limit := config.NormalizePaginationLimit(req.Limit)
	offset := config.NormalizeOffset(req.Offset)

	g, gctx := errgroup.WithContext(ctx)
	var (
		count       int64
		occurrences []*model.Occurrence
	)
	g.Go(func() error {
		var err error
		count, err = s.repo.CountOccurrences(gctx, filter)
		if err != nil {
			s.cfg.Log.Ctx(ctx).Error("Failed to count occurrences", "error", err)
			return apperrors.Internal("Failed to count occurrences", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		occurrences, err = s.repo.ListOccurrences(gctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Ctx(ctx).Error("Failed to list occurrences",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			return apperrors.Internal("Failed to retrieve occurrences", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	req.Limit = limit
	req.Offset = offset
	return occurrences, count, nil
}

// filterFor turns the studio-local date range into a UTC half-open interval
// covering whole days.
func (s *catalogService) filterFor(req *model.ListOccurrencesRequest) (model.OccurrenceFilter, error) {
	loc := s.cfg.StudioLocation()
	f := model.OccurrenceFilter{
		ClassType:    req.ClassType,
		Level:        req.Level,
		InstructorID: req.InstructorID,
		Availability: req.Availability,
	}
	if req.From != "" {
		from, err := time.ParseInLocation(time.DateOnly, req.From, loc)
		if err != nil {
			return f, err
		}
		f.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(time.DateOnly, req.To, loc)
		if err != nil {
			return f, err
		}
		_, end := model.DayBounds(to)
		f.To = &end
	}
	return f, nil
}

func (s *catalogService) GetOccurrence(ctx context.Context, id string) (*model.Occurrence, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Occurrence ID cannot be empty")
	}

	occ, err := s.repo.FindOccurrence(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrOccurrenceNotFound) {
			return nil, apperrors.NotFoundWithID("Occurrence", id)
		}
		s.cfg.Log.Ctx(ctx).Error("Failed to get occurrence by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve occurrence", err)
	}
	return occ, nil
}

func (s *catalogService) CreateOccurrence(ctx context.Context, actor model.Actor, req *model.CreateOccurrenceRequest) (*model.Occurrence, error) {
	if !actor.Elevated() {
		return nil, apperrors.Forbidden("Only staff may create class occurrences")
	}

	req.ClassName = sanitizer.NormalizeName(req.ClassName)
	req.ClassType = sanitizer.SanitizeLabel(req.ClassType)
	req.Room = sanitizer.NormalizeName(req.Room)
	if err := s.validator.ValidateOccurrence(req); err != nil {
		return nil, s.invalid(ctx, "Occurrence validation failed", err)
	}

	occ := &model.Occurrence{
		ClassTemplateID: req.ClassTemplateID,
		ClassName:       req.ClassName,
		ClassType:       req.ClassType,
		Level:           req.Level,
		StartsAt:        req.StartsAt.UTC(),
		EndsAt:          req.EndsAt.UTC(),
		Room:            req.Room,
		InstructorID:    req.InstructorID,
		MaxCapacity:     req.MaxCapacity,
	}
	if err := s.repo.CreateOccurrence(ctx, occ); err != nil {
		if errors.Is(err, catalogerrors.ErrDuplicateOccurrence) {
			return nil, apperrors.Conflict("Occurrence already exists")
		}
		s.cfg.Log.Ctx(ctx).Error("Failed to create occurrence", "class_name", occ.ClassName, "error", err)
		return nil, apperrors.Internal("Failed to create occurrence", err)
	}

	s.cfg.Log.Ctx(ctx).Info("Occurrence created successfully",
		"id", occ.ID,
		"class_name", occ.ClassName,
		"starts_at", occ.StartsAt,
		"max_capacity", occ.MaxCapacity,
		"actor_id", actor.UserID,
	)
	return occ, nil
}

func (s *catalogService) UpsertTrainer(ctx context.Context, actor model.Actor, id string, req *model.UpsertTrainerRequest) (*model.Trainer, bool, error) {
	if !actor.Elevated() {
		return nil, false, apperrors.Forbidden("Only staff may manage trainers")
	}
	if id == "" {
		return nil, false, apperrors.InvalidInput("Trainer ID cannot be empty")
	}

	req.Name = sanitizer.NormalizeName(req.Name)
	if err := s.validator.ValidateTrainer(req); err != nil {
		return nil, false, s.invalid(ctx, "Trainer validation failed", err)
	}

	windows := append([]model.AvailabilityWindow(nil), req.Availability...)
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Weekday != windows[j].Weekday {
			return windows[i].Weekday < windows[j].Weekday
		}
		return windows[i].Start < windows[j].Start
	})
	windows = sanitizer.Dedupe(windows)

	trainer := &model.Trainer{
		ID:           id,
		Name:         req.Name,
		HourlyRate:   req.HourlyRate.Round(2),
		Availability: windows,
	}
	created, err := s.repo.UpsertTrainer(ctx, trainer)
	if err != nil {
		s.cfg.Log.Ctx(ctx).Error("Failed to upsert trainer", "id", id, "error", err)
		return nil, false, apperrors.Internal("Failed to save trainer", err)
	}

	stored, err := s.repo.FindTrainer(ctx, id)
	if err != nil {
		s.cfg.Log.Ctx(ctx).Error("Failed to reload trainer", "id", id, "error", err)
		return nil, false, apperrors.Internal("Failed to retrieve trainer", err)
	}

	s.cfg.Log.Ctx(ctx).Info("Trainer saved successfully",
		"id", id,
		"created", created,
		"windows", len(windows),
		"actor_id", actor.UserID,
	)
	return stored, created, nil
}

// GetTrainerAvailability returns the trainer's windows on date and the parts
// of them not taken by a non-cancelled appointment.
func (s *catalogService) GetTrainerAvailability(ctx context.Context, trainerID, date string) (*model.TrainerAvailability, error) {
	if trainerID == "" {
		return nil, apperrors.InvalidInput("Trainer ID cannot be empty")
	}
	day, err := time.ParseInLocation(time.DateOnly, date, s.cfg.StudioLocation())
	if err != nil {
		return nil, apperrors.InvalidInput("date must be in YYYY-MM-DD format")
	}

	trainer, err := s.repo.FindTrainer(ctx, trainerID)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrTrainerNotFound) {
			return nil, apperrors.NotFoundWithID("Trainer", trainerID)
		}
		s.cfg.Log.Ctx(ctx).Error("Failed to get trainer", "id", trainerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve trainer", err)
	}

	dayStart, dayEnd := model.DayBounds(day)
	booked, err := s.repo.TrainerAppointments(ctx, trainerID, dayStart, dayEnd)
	if err != nil {
		s.cfg.Log.Ctx(ctx).Error("Failed to get trainer appointments", "id", trainerID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve trainer appointments", err)
	}

	windows := trainer.WindowsOn(day)
	free := make([]model.Interval, 0, len(windows))
	for _, w := range windows {
		start, end, err := w.On(day)
		if err != nil {
			s.cfg.Log.Ctx(ctx).Warn("Skipping malformed availability window", "trainer_id", trainerID, "error", err)
			continue
		}
		free = append(free, subtract(model.Interval{Start: start.UTC(), End: end.UTC()}, booked)...)
	}

	return &model.TrainerAvailability{
		TrainerID: trainerID,
		Date:      date,
		Windows:   windows,
		Booked:    booked,
		Free:      free,
	}, nil
}

// subtract removes the busy intervals from window. busy must be sorted by start.
func subtract(window model.Interval, busy []model.Interval) []model.Interval {
	var out []model.Interval
	cursor := window.Start
	for _, b := range busy {
		if !b.End.After(cursor) || !b.Start.Before(window.End) {
			continue
		}
		if b.Start.After(cursor) {
			out = append(out, model.Interval{Start: cursor, End: b.Start})
		}
		cursor = b.End
		if !cursor.Before(window.End) {
			return out
		}
	}
	if cursor.Before(window.End) {
		out = append(out, model.Interval{Start: cursor, End: window.End})
	}
	return out
}

func (s *catalogService) invalid(ctx context.Context, msg string, err error) error {
	s.cfg.Log.Ctx(ctx).Warn(msg, "error", err)

	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(msg, verrs.Details())
	}
	return apperrors.Validation(msg, map[string]any{"error": err.Error()})
}
