package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	lessonserrors "classbook/internal/lessons/errors"
	"classbook/pkg/config"
	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ClassOptionsCollectionName = "Class_options"
)

type ClassOptionRepository interface {
	Create(ctx context.Context, option *model.ClassOption) error
	FindByID(ctx context.Context, id string) (*model.ClassOption, error)
}

type mongoClassOptionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoClassOptionRepository(cfg *config.Config) ClassOptionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoClassOptionRepository{
		cfg:        cfg,
		collection: db.Collection(ClassOptionsCollectionName),
	}
}

func (r *mongoClassOptionRepository) Create(ctx context.Context, option *model.ClassOption) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	option.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, option)
	if err != nil {
		return fmt.Errorf("failed to create class option: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		option.ID = oid.Hex()
	}
	return nil
}

func (r *mongoClassOptionRepository) FindByID(ctx context.Context, id string) (*model.ClassOption, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}

	var option model.ClassOption
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&option); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lessonserrors.ErrClassOptionNotFound
		}
		return nil, fmt.Errorf("failed to find class option: %w", err)
	}
	return &option, nil
}
