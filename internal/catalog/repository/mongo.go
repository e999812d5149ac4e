package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	catalogerrors "studiobook/internal/catalog/errors"
	"studiobook/internal/records"
	"studiobook/pkg/config"
	"studiobook/pkg/model"
)

type mongoCatalogRepository struct {
	cfg         *config.Config
	occurrences *mongo.Collection
	trainers    *mongo.Collection
	bookings    *mongo.Collection
}

func NewMongoCatalogRepository(cfg *config.Config) CatalogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCatalogRepository{
		cfg:         cfg,
		occurrences: db.Collection(records.OccurrencesCollection),
		trainers:    db.Collection(records.TrainersCollection),
		bookings:    db.Collection(records.BookingsCollection),
	}
}

func (r *mongoCatalogRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

// countedOccurrence is an occurrence document joined with its booking counts.
type countedOccurrence struct {
	model.Occurrence `bson:",inline"`
	Confirmed        int `bson:"confirmed_count"`
	Waiting          int `bson:"waitlist_count"`
}

func (c *countedOccurrence) toModel() *model.Occurrence {
	occ := c.Occurrence
	occ.StartsAt = occ.StartsAt.UTC()
	occ.EndsAt = occ.EndsAt.UTC()
	occ.CreatedAt = occ.CreatedAt.UTC()
	occ.ApplyCounts(c.Confirmed, c.Waiting)
	return &occ
}

func occurrenceMatch(f model.OccurrenceFilter) bson.M {
	match := bson.M{}
	if f.ClassType != "" {
		match["class_type"] = f.ClassType
	}
	if f.Level != "" {
		match["level"] = f.Level
	}
	if f.InstructorID != "" {
		match["instructor_id"] = f.InstructorID
	}
	if f.From != nil || f.To != nil {
		window := bson.M{}
		if f.From != nil {
			window["$gte"] = f.From.UTC()
		}
		if f.To != nil {
			window["$lt"] = f.To.UTC()
		}
		match["starts_at"] = window
	}
	return match
}

func countOf(status model.BookingStatus) bson.M {
	return bson.M{"$sum": bson.M{"$map": bson.M{
		"input": bson.M{"$filter": bson.M{
			"input": "$counts",
			"as":    "c",
			"cond":  bson.M{"$eq": bson.A{"$$c._id", status}},
		}},
		"as": "c",
		"in": "$$c.n",
	}}}
}

func availabilityExpr(a model.AvailabilityStatus) bson.M {
	spotsPct := bson.M{"$multiply": bson.A{bson.M{"$subtract": bson.A{"$max_capacity", "$confirmed_count"}}, 100}}
	threshold := bson.M{"$multiply": bson.A{"$max_capacity", model.AlmostFullPercent}}

	switch a {
	case model.AvailabilityFull:
		return bson.M{"$gte": bson.A{"$confirmed_count", "$max_capacity"}}
	case model.AvailabilityAlmostFull:
		return bson.M{"$and": bson.A{
			bson.M{"$lt": bson.A{"$confirmed_count", "$max_capacity"}},
			bson.M{"$lte": bson.A{spotsPct, threshold}},
		}}
	case model.AvailabilityOpen:
		return bson.M{"$gt": bson.A{spotsPct, threshold}}
	}
	return nil
}

// occurrencePipeline matches, joins confirmed and wait-listed counts and
// filters on the derived availability.
func occurrencePipeline(f model.OccurrenceFilter) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: occurrenceMatch(f)}},
		{{Key: "$lookup", Value: bson.M{
			"from": records.BookingsCollection,
			"let":  bson.M{"occ": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$occurrence_id", "$$occ"}},
					bson.M{"$in": bson.A{"$status", model.ActiveStatuses}},
				}}}},
				bson.M{"$group": bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}},
			},
			"as": "counts",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"confirmed_count": countOf(model.StatusConfirmed),
			"waitlist_count":  countOf(model.StatusWaitListed),
		}}},
		{{Key: "$project", Value: bson.M{"counts": 0}}},
	}
	if expr := availabilityExpr(f.Availability); expr != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$expr": expr}}})
	}
	return pipeline
}

func (r *mongoCatalogRepository) ListOccurrences(ctx context.Context, f model.OccurrenceFilter, limit int, offset int64) ([]*model.Occurrence, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := append(occurrencePipeline(f),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$skip", Value: offset}},
		bson.D{{Key: "$limit", Value: int64(limit)}},
	)

	cursor, err := r.occurrences.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []countedOccurrence
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode occurrences: %w", err)
	}

	occurrences := make([]*model.Occurrence, 0, len(docs))
	for i := range docs {
		occurrences = append(occurrences, docs[i].toModel())
	}
	return occurrences, nil
}

func (r *mongoCatalogRepository) CountOccurrences(ctx context.Context, f model.OccurrenceFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if f.Availability == "" {
		n, err := r.occurrences.CountDocuments(ctx, occurrenceMatch(f))
		if err != nil {
			return 0, fmt.Errorf("failed to count occurrences: %w", err)
		}
		return n, nil
	}

	pipeline := append(occurrencePipeline(f), bson.D{{Key: "$count", Value: "total"}})
	cursor, err := r.occurrences.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count occurrences: %w", err)
	}
	defer cursor.Close(ctx)

	var out []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("failed to decode occurrence count: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (r *mongoCatalogRepository) FindOccurrence(ctx context.Context, id string) (*model.Occurrence, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := occurrencePipeline(model.OccurrenceFilter{})
	pipeline[0] = bson.D{{Key: "$match", Value: bson.M{"_id": id}}}

	cursor, err := r.occurrences.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find occurrence: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("failed to find occurrence: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrOccurrenceNotFound, id)
	}
	var doc countedOccurrence
	if err := cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode occurrence: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoCatalogRepository) CreateOccurrence(ctx context.Context, occ *model.Occurrence) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	occ.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	occ.StartsAt = occ.StartsAt.UTC()
	occ.EndsAt = occ.EndsAt.UTC()

	doc := bson.M{
		"_id":               occ.ID,
		"class_template_id": occ.ClassTemplateID,
		"class_name":        occ.ClassName,
		"class_type":        occ.ClassType,
		"level":             occ.Level,
		"starts_at":         occ.StartsAt,
		"ends_at":           occ.EndsAt,
		"room":              occ.Room,
		"instructor_id":     occ.InstructorID,
		"max_capacity":      occ.MaxCapacity,
		"lock_version":      int64(0),
		"created_at":        occ.CreatedAt,
	}
	if _, err := r.occurrences.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateOccurrence, occ.ID)
		}
		return fmt.Errorf("failed to create occurrence: %w", err)
	}
	occ.ApplyCounts(0, 0)
	return nil
}

func (r *mongoCatalogRepository) FindTrainer(ctx context.Context, id string) (*model.Trainer, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var doc records.TrainerDocument
	err := r.trainers.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrTrainerNotFound, id)
		}
		return nil, fmt.Errorf("failed to find trainer: %w", err)
	}
	return doc.Model()
}

func (r *mongoCatalogRepository) UpsertTrainer(ctx context.Context, t *model.Trainer) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	t.UpdatedAt = now
	doc, err := records.NewTrainerDocument(t)
	if err != nil {
		return false, err
	}

	res, err := r.trainers.UpdateOne(ctx,
		bson.M{"_id": t.ID},
		bson.M{
			"$set": bson.M{
				"name":         doc.Name,
				"hourly_rate":  doc.HourlyRate,
				"availability": doc.Availability,
				"updated_at":   now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert trainer: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *mongoCatalogRepository) TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]model.Interval, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"trainer_id": trainerID,
		"status":     bson.M{"$ne": model.StatusCancelled},
		"starts_at":  bson.M{"$lt": to.UTC()},
		"ends_at":    bson.M{"$gt": from.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "starts_at", Value: 1}}).
		SetProjection(bson.M{"starts_at": 1, "ends_at": 1})

	cursor, err := r.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query trainer appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		StartsAt time.Time `bson:"starts_at"`
		EndsAt   time.Time `bson:"ends_at"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode trainer appointments: %w", err)
	}

	intervals := make([]model.Interval, 0, len(docs))
	for _, d := range docs {
		intervals = append(intervals, model.Interval{Start: d.StartsAt.UTC(), End: d.EndsAt.UTC()})
	}
	return intervals, nil
}
