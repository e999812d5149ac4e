package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studiobook/internal/migrations/mongo/validators"
	"studiobook/internal/records"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

var (
	OccurrencesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "class_type", Value: 1}, {Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "instructor_id", Value: 1}, {Key: "starts_at", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "occurrence_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "waitlist_position", Value: 1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ends_at", Value: 1}}},
		{Keys: bson.D{{Key: "trainer_id", Value: 1}, {Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "ends_at", Value: 1}}},
		// one active booking per (user, occurrence); partial $in needs MongoDB 6.0+
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurrence_id", Value: 1}},
			Options: options.Index().
				SetName("uq_active_user_occurrence").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"occurrence_id": bson.M{"$exists": true},
					"status":        bson.M{"$in": model.ActiveStatuses},
				}),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func RunMigration(ctx context.Context, client *mongo.Client, database string, log *logger.Logger) error {
	db := client.Database(database)
	log.Info("Running Mongo migrations", "database", database)

	collections := map[string]collectionDef{
		records.OccurrencesCollection: {
			Indexes:   OccurrencesIndexes,
			Validator: validators.OccurrenceValidator,
		},
		records.TrainersCollection: {
			Validator: validators.TrainerValidator,
		},
		records.BookingsCollection: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		records.SlotLocksCollection: {},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
