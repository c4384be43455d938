package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "slotter/internal/slots/errors"
	"slotter/pkg/config"
	mongotx "slotter/pkg/db/mongo"
	"slotter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindOverlapping(ctx context.Context, workshopID string, startTime, endTime time.Time) ([]*model.Slot, error)
	FindAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, error)
	CountAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time) (int64, error)
	DeleteAvailable(ctx context.Context, id string) (bool, error)
	TryTransitionToBooked(ctx context.Context, id string, expectedVersion int64) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless the call is already
// inside a transaction. A SessionContext cannot be wrapped without breaking
// transaction semantics, so it is returned unchanged with a no-op cancel.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

// FindOverlapping returns every slot of the workshop whose half-open
// interval intersects [startTime, endTime), regardless of status. Booked
// slots block new overlapping slots just like available ones.
func (r *mongoSlotRepository) FindOverlapping(ctx context.Context, workshopID string, startTime, endTime time.Time) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"workshop_id": workshopID,
		"start_time":  bson.M{"$lt": endTime},
		"end_time":    bson.M{"$gt": startTime},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) FindAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildAvailableFilter(workshopID, from, to)

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find available slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode available slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) CountAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildAvailableFilter(workshopID, from, to))
	if err != nil {
		return 0, fmt.Errorf("failed to count available slots: %w", err)
	}
	return count, nil
}

func (r *mongoSlotRepository) buildAvailableFilter(workshopID string, from, to *time.Time) bson.M {
	filter := bson.M{
		"workshop_id": workshopID,
		"status":      model.SlotStatusAvailable,
	}

	if from != nil {
		filter["start_time"] = bson.M{"$gte": *from}
	}
	if to != nil {
		filter["end_time"] = bson.M{"$lte": *to}
	}

	return filter
}

// DeleteAvailable removes the slot only while it is still available. It
// reports whether a document was deleted; the distinction between "absent"
// and "present but booked" is left to the caller.
func (r *mongoSlotRepository) DeleteAvailable(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": model.SlotStatusAvailable,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete slot: %w", err)
	}

	return result.DeletedCount > 0, nil
}

// TryTransitionToBooked is the single write path from available to booked.
// The filter pins status and concurrency_version, so of N concurrent
// attempts against one slot exactly one matches; every other attempt
// returns false without modifying anything.
func (r *mongoSlotRepository) TryTransitionToBooked(ctx context.Context, id string, expectedVersion int64) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":                 objectID,
		"status":              model.SlotStatusAvailable,
		"concurrency_version": expectedVersion,
	}
	update := bson.M{
		"$set": bson.M{"status": model.SlotStatusBooked},
		"$inc": bson.M{"concurrency_version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to transition slot to booked: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
