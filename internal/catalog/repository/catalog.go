package repository

import (
	"context"
	"time"

	"studiobook/pkg/model"
)

// CatalogRepository serves the read-mostly schedule data. Listings are not
// taken under any booking scope, so derived counts may be slightly stale.
type CatalogRepository interface {
	ListOccurrences(ctx context.Context, filter model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error)
	CountOccurrences(ctx context.Context, filter model.OccurrenceFilter) (int64, error)
	FindOccurrence(ctx context.Context, id string) (*model.Occurrence, error)
	CreateOccurrence(ctx context.Context, occ *model.Occurrence) error

	FindTrainer(ctx context.Context, id string) (*model.Trainer, error)
	// UpsertTrainer replaces the trainer's profile and weekly windows and
	// reports whether the trainer was created.
	UpsertTrainer(ctx context.Context, trainer *model.Trainer) (bool, error)
	// TrainerAppointments returns the non-cancelled appointments overlapping [from, to).
	TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]model.Interval, error)
}
