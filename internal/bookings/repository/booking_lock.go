package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/pkg/config"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LocksCollectionName = "Booking_locks"

	lockIDPrefix = "lesson_lock_"
)

// BookingLockRepository provides advisory locks keyed by lesson ID.
type BookingLockRepository interface {
	// Acquire returns ErrLockHeld when another owner holds an unexpired lock.
	Acquire(ctx context.Context, lessonID, owner string, ttl time.Duration) error
	Release(ctx context.Context, lessonID, owner string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LocksCollectionName),
	}
}

func LockID(lessonID string) string {
	return lockIDPrefix + lessonID
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lessonID, owner string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := &model.BookingLock{
		ID:        LockID(lessonID),
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire lesson lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so take over a stale lock directly.
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lock.ID, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": lock.ExpiresAt, "created_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to take over lesson lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrLockHeld
	}
	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, lessonID, owner string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": LockID(lessonID), "owner": owner}); err != nil {
		return fmt.Errorf("failed to release lesson lock: %w", err)
	}
	return nil
}
