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

	bookingserrors "studiobook/internal/bookings/errors"
	"studiobook/internal/records"
	"studiobook/pkg/config"
	mongotx "studiobook/pkg/db/mongo"
	"studiobook/pkg/model"
)

type mongoLedger struct {
	cfg         *config.Config
	bookings    *mongo.Collection
	occurrences *mongo.Collection
	trainers    *mongo.Collection
	slotLocks   *mongo.Collection
	txManager   mongotx.TransactionManager
}

func NewMongoLedger(cfg *config.Config) Ledger {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLedger{
		cfg:         cfg,
		bookings:    db.Collection(records.BookingsCollection),
		occurrences: db.Collection(records.OccurrencesCollection),
		trainers:    db.Collection(records.TrainersCollection),
		slotLocks:   db.Collection(records.SlotLocksCollection),
		txManager:   mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.LockPolicy()),
	}
}

// withTimeout bounds ctx unless it is a transaction's SessionContext, which
// cannot be wrapped without losing the session.
func (l *mongoLedger) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

// InOccurrenceScope bumps the occurrence's lock_version first so that any two
// transactions touching the same occurrence write-conflict and one is retried.
func (l *mongoLedger) InOccurrenceScope(ctx context.Context, occurrenceID string, fn OccurrenceScopeFunc) error {
	return l.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var occ model.Occurrence
		err := l.occurrences.FindOneAndUpdate(sessCtx,
			bson.M{"_id": occurrenceID},
			bson.M{"$inc": bson.M{"lock_version": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&occ)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return bookingserrors.ErrOccurrenceNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock occurrence: %w", err)
		}
		occ.StartsAt = occ.StartsAt.UTC()
		occ.EndsAt = occ.EndsAt.UTC()

		return fn(sessCtx, &mongoTx{ledger: l}, &occ)
	})
}

func (l *mongoLedger) InTrainerScope(ctx context.Context, trainerID string, day time.Time, fn TrainerScopeFunc) error {
	key := TrainerLockKey(trainerID, day)

	return l.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		_, err := l.slotLocks.UpdateOne(sessCtx,
			bson.M{"_id": key},
			bson.M{
				"$inc": bson.M{"version": 1},
				"$set": bson.M{"updated_at": time.Now().UTC()},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to lock trainer day: %w", err)
		}

		var doc records.TrainerDocument
		err = l.trainers.FindOne(sessCtx, bson.M{"_id": trainerID}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return bookingserrors.ErrTrainerNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load trainer: %w", err)
		}
		trainer, err := doc.Model()
		if err != nil {
			return err
		}

		return fn(sessCtx, &mongoTx{ledger: l}, trainer)
	})
}

func (l *mongoLedger) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := l.withTimeout(ctx, l.cfg.ReadTimeout)
	defer cancel()
	return l.findOne(ctx, bson.M{"_id": id}, nil)
}

func (l *mongoLedger) FindByUser(ctx context.Context, userID string, scope model.BookingScope, now time.Time) ([]*model.Booking, error) {
	ctx, cancel := l.withTimeout(ctx, l.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID, "ends_at": bson.M{"$gt": now.UTC()}}
	sort := 1
	if scope == model.ScopePast {
		filter["ends_at"] = bson.M{"$lte": now.UTC()}
		sort = -1
	}

	return l.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "starts_at", Value: sort}}))
}

func (l *mongoLedger) FindElapsed(ctx context.Context, endedBefore time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := l.withTimeout(ctx, l.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"status": model.StatusConfirmed, "ends_at": bson.M{"$lte": endedBefore.UTC()}}
	opts := options.Find().
		SetSort(bson.D{{Key: "ends_at", Value: 1}}).
		SetLimit(int64(limit))
	return l.find(ctx, filter, opts)
}

func (l *mongoLedger) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*model.Booking, error) {
	if opts == nil {
		opts = options.FindOne()
	}
	var doc records.BookingDocument
	err := l.bookings.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return doc.Model()
}

func (l *mongoLedger) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := l.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []records.BookingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(docs))
	for i := range docs {
		b, err := docs[i].Model()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// mongoTx runs every call on the SessionContext handed to it by the scope.
type mongoTx struct {
	ledger *mongoLedger
}

func (t *mongoTx) FindBooking(ctx context.Context, id string) (*model.Booking, error) {
	return t.ledger.findOne(ctx, bson.M{"_id": id}, nil)
}

func (t *mongoTx) HasActiveBooking(ctx context.Context, occurrenceID, userID string) (bool, error) {
	n, err := t.ledger.bookings.CountDocuments(ctx, bson.M{
		"occurrence_id": occurrenceID,
		"user_id":       userID,
		"status":        bson.M{"$in": model.ActiveStatuses},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check active booking: %w", err)
	}
	return n > 0, nil
}

func (t *mongoTx) CountByStatus(ctx context.Context, occurrenceID string, status model.BookingStatus) (int, error) {
	n, err := t.ledger.bookings.CountDocuments(ctx, bson.M{"occurrence_id": occurrenceID, "status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s bookings: %w", status, err)
	}
	return int(n), nil
}

func (t *mongoTx) NextWaitlistPosition(ctx context.Context, occurrenceID string) (int, error) {
	last, err := t.ledger.findOne(ctx,
		bson.M{"occurrence_id": occurrenceID, "status": model.StatusWaitListed},
		options.FindOne().SetSort(bson.D{{Key: "waitlist_position", Value: -1}}),
	)
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read waitlist position: %w", err)
	}
	if last.WaitlistPosition == nil {
		return 1, nil
	}
	return *last.WaitlistPosition + 1, nil
}

func (t *mongoTx) OldestWaitListed(ctx context.Context, occurrenceID string) (*model.Booking, error) {
	return t.ledger.findOne(ctx,
		bson.M{"occurrence_id": occurrenceID, "status": model.StatusWaitListed},
		options.FindOne().SetSort(bson.D{{Key: "waitlist_position", Value: 1}, {Key: "created_at", Value: 1}}),
	)
}

func (t *mongoTx) TrainerAppointments(ctx context.Context, trainerID string, from, to time.Time) ([]*model.Booking, error) {
	filter := bson.M{
		"trainer_id": trainerID,
		"status":     bson.M{"$ne": model.StatusCancelled},
		"starts_at":  bson.M{"$lt": to.UTC()},
		"ends_at":    bson.M{"$gt": from.UTC()},
	}
	return t.ledger.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
}

func (t *mongoTx) Insert(ctx context.Context, b *model.Booking, change model.StatusChange) error {
	if err := prepareInsert(b, &change); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.History = []model.StatusChange{change}

	doc, err := records.NewBookingDocument(b)
	if err != nil {
		return err
	}
	if _, err := t.ledger.bookings.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateBooking
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (t *mongoTx) Transition(ctx context.Context, b *model.Booking, to model.BookingStatus, change model.StatusChange) error {
	from, err := applyTransition(b, to, &change)
	if err != nil {
		return err
	}

	set := bson.M{
		"status":            b.Status,
		"waitlist_position": nil,
		"updated_at":        b.UpdatedAt,
	}
	if to == model.StatusCancelled {
		set["cancelled_at"] = b.CancelledAt
		set["cancellation_reason"] = b.CancellationReason
		set["cancelled_by"] = b.CancelledBy
	}

	res, err := t.ledger.bookings.UpdateOne(ctx,
		bson.M{"_id": b.ID, "status": from},
		bson.M{"$set": set, "$push": bson.M{"history": change}},
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if res.MatchedCount == 0 {
		return bookingserrors.ErrStaleStatus
	}
	return nil
}

func (t *mongoTx) SetCapacity(ctx context.Context, occurrenceID string, capacity int) error {
	res, err := t.ledger.occurrences.UpdateOne(ctx, bson.M{"_id": occurrenceID}, bson.M{"$set": bson.M{"max_capacity": capacity}})
	if err != nil {
		return fmt.Errorf("failed to update capacity: %w", err)
	}
	if res.MatchedCount == 0 {
		return bookingserrors.ErrOccurrenceNotFound
	}
	return nil
}
