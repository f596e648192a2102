package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/redis/go-redis/v9"
)

const availabilityKeyPrefix = "classbook:availability:"

// AvailabilityCache stores derived lesson availability. Misses and cache
// failures both report ok=false so callers fall through to the database.
type AvailabilityCache interface {
	Get(ctx context.Context, lessonID string) (*model.LessonAvailability, bool)
	Set(ctx context.Context, availability *model.LessonAvailability)
	Invalidate(ctx context.Context, lessonID string)
}

type redisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewAvailabilityCache returns a Redis-backed cache, or a no-op cache when
// client is nil or ttl is not positive.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, log *logger.Logger) AvailabilityCache {
	if client == nil || ttl <= 0 {
		return NoopAvailabilityCache{}
	}
	return &redisAvailabilityCache{client: client, ttl: ttl, log: log}
}

func AvailabilityKey(lessonID string) string {
	return availabilityKeyPrefix + lessonID
}

func (c *redisAvailabilityCache) Get(ctx context.Context, lessonID string) (*model.LessonAvailability, bool) {
	data, err := c.client.Get(ctx, AvailabilityKey(lessonID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("availability cache read failed", "lesson_id", lessonID, "error", err)
		}
		return nil, false
	}

	var availability model.LessonAvailability
	if err := json.Unmarshal(data, &availability); err != nil {
		c.log.Warn("availability cache entry is corrupt", "lesson_id", lessonID, "error", err)
		return nil, false
	}
	return &availability, true
}

func (c *redisAvailabilityCache) Set(ctx context.Context, availability *model.LessonAvailability) {
	if availability == nil || availability.Lesson == nil {
		return
	}
	data, err := json.Marshal(availability)
	if err != nil {
		c.log.Warn("failed to encode availability", "lesson_id", availability.Lesson.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, AvailabilityKey(availability.Lesson.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn("availability cache write failed", "lesson_id", availability.Lesson.ID, "error", err)
	}
}

func (c *redisAvailabilityCache) Invalidate(ctx context.Context, lessonID string) {
	if err := c.client.Del(ctx, AvailabilityKey(lessonID)).Err(); err != nil {
		c.log.Warn("availability cache invalidation failed", "lesson_id", lessonID, "error", err)
	}
}

type NoopAvailabilityCache struct{}

func (NoopAvailabilityCache) Get(context.Context, string) (*model.LessonAvailability, bool) {
	return nil, false
}

func (NoopAvailabilityCache) Set(context.Context, *model.LessonAvailability) {}

func (NoopAvailabilityCache) Invalidate(context.Context, string) {}
