package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotter/pkg/config"
	"slotter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	WorkshopCollectionName = "Workshops"
	ServiceCollectionName  = "Services"
)

var (
	ErrWorkshopNotFound = errors.New("workshop not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrInvalidID        = errors.New("invalid ID format")
)

// Workshops and services are owned by an external CRUD surface; this
// service reads them for ownership checks and duration validation only.
type WorkshopRepository interface {
	FindByID(ctx context.Context, id string) (*model.Workshop, error)
}

type ServiceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Service, error)
}

type mongoWorkshopRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWorkshopRepository(cfg *config.Config) WorkshopRepository {
	db := cfg.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWorkshopRepository{
		cfg:        cfg,
		collection: db.Collection(WorkshopCollectionName),
	}
}

func (r *mongoWorkshopRepository) FindByID(ctx context.Context, id string) (*model.Workshop, error) {
	ctx, cancel := readTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var workshop model.Workshop
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&workshop)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("failed to find workshop: %w", err)
	}

	return &workshop, nil
}

type mongoServiceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoServiceRepository(cfg *config.Config) ServiceRepository {
	db := cfg.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceRepository{
		cfg:        cfg,
		collection: db.Collection(ServiceCollectionName),
	}
}

func (r *mongoServiceRepository) FindByID(ctx context.Context, id string) (*model.Service, error) {
	ctx, cancel := readTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var service model.Service
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}

	return &service, nil
}

func readTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
