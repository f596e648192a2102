package service

import (
	"context"
	"testing"
	"time"

	"classbook/internal/lessons/validator"
	"classbook/internal/testutil/memstore"
	"classbook/pkg/cache"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingCache struct {
	entries     map[string]*model.LessonAvailability
	invalidated []string
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[string]*model.LessonAvailability)}
}

func (c *countingCache) Get(_ context.Context, id string) (*model.LessonAvailability, bool) {
	a, ok := c.entries[id]
	return a, ok
}

func (c *countingCache) Set(_ context.Context, a *model.LessonAvailability) {
	c.entries[a.Lesson.ID] = a
}

func (c *countingCache) Invalidate(_ context.Context, id string) {
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

func newTestService(store *memstore.Store, c *countingCache) LessonService {
	cfg := &config.Config{Log: logger.Discard(), DefaultCurrency: "EUR"}
	var availabilityCache cache.AvailabilityCache
	if c != nil {
		availabilityCache = c
	}
	return NewLessonService(
		store.Lessons(),
		store.ClassOptions(),
		store.Bookings(),
		availabilityCache,
		validator.NewLessonValidator(cfg.Log),
		cfg,
	)
}

func newLesson(optionID string, lockOut int) *model.Lesson {
	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	return &model.Lesson{
		ClassOptionID: optionID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		LockOutTime:   lockOut,
		Location:      "  Studio   2 ",
	}
}

func TestCreate_SnapshotsLockOutAndDefaults(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, nil)
	option := store.ClassOptions().Put(&model.ClassOption{Name: "Pilates", Places: 8})

	lesson := newLesson(option.ID, 120)
	require.NoError(t, svc.Create(context.Background(), lesson))

	stored, err := svc.GetByID(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
	require.NotNil(t, stored.OriginalLockOutTime)
	assert.Equal(t, 120, *stored.OriginalLockOutTime)
	assert.Equal(t, "Studio 2", stored.Location)
	assert.Equal(t, time.UTC, stored.StartTime.Location())
}

func TestCreate_Rejects(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, nil)
	option := store.ClassOptions().Put(&model.ClassOption{Name: "Pilates", Places: 8})

	missingOption := newLesson(primitive.NewObjectID().Hex(), 0)
	err := svc.Create(context.Background(), missingOption)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	backwards := newLesson(option.ID, 0)
	backwards.EndTime = backwards.StartTime.Add(-time.Minute)
	err = svc.Create(context.Background(), backwards)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	original := 30
	drifted := newLesson(option.ID, 45)
	drifted.OriginalLockOutTime = &original
	err = svc.Create(context.Background(), drifted)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestDelete_CascadesBookings(t *testing.T) {
	store := memstore.New()
	c := newCountingCache()
	svc := newTestService(store, c)
	ctx := context.Background()
	option := store.ClassOptions().Put(&model.ClassOption{Name: "Pilates", Places: 8})

	lesson := newLesson(option.ID, 0)
	require.NoError(t, svc.Create(ctx, lesson))
	other := newLesson(option.ID, 0)
	require.NoError(t, svc.Create(ctx, other))

	for _, id := range []string{lesson.ID, lesson.ID, other.ID} {
		require.NoError(t, store.Bookings().Create(ctx, &model.Booking{
			LessonID: id,
			UserID:   primitive.NewObjectID().Hex(),
			Status:   model.BookingConfirmed,
		}))
	}

	require.NoError(t, svc.Delete(ctx, lesson.ID))
	assert.Empty(t, store.Bookings().All(lesson.ID))
	assert.Len(t, store.Bookings().All(other.ID), 1)
	assert.Contains(t, c.invalidated, lesson.ID)

	err := svc.Delete(ctx, lesson.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAvailability_CachedUntilInvalidated(t *testing.T) {
	store := memstore.New()
	c := newCountingCache()
	svc := newTestService(store, c)
	ctx := context.Background()
	option := store.ClassOptions().Put(&model.ClassOption{Name: "Pilates", Places: 2, WaitlistEnabled: true})

	lesson := newLesson(option.ID, 0)
	require.NoError(t, svc.Create(ctx, lesson))

	a, err := svc.Availability(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Places)
	assert.Equal(t, 2, a.RemainingCapacity)
	assert.Equal(t, model.LessonOpen, a.BookingStatus)

	for j := 0; j < 2; j++ {
		require.NoError(t, store.Bookings().Create(ctx, &model.Booking{
			LessonID: lesson.ID,
			UserID:   primitive.NewObjectID().Hex(),
			Status:   model.BookingConfirmed,
		}))
	}

	cached, err := svc.Availability(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cached.RemainingCapacity)

	current, err := svc.CurrentAvailability(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.RemainingCapacity)
	assert.Equal(t, model.LessonWaitlist, current.BookingStatus)

	svc.InvalidateAvailability(ctx, lesson.ID)
	fresh, err := svc.Availability(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.ConfirmedCount)
}

func TestAvailability_Errors(t *testing.T) {
	svc := newTestService(memstore.New(), nil)

	_, err := svc.Availability(context.Background(), primitive.NewObjectID().Hex())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = svc.Availability(context.Background(), "not-an-id")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestQuote(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, nil)
	ctx := context.Background()

	priced := store.ClassOptions().Put(&model.ClassOption{
		Name:   "Pilates",
		Places: 8,
		DropIn: &model.DropIn{
			Price:         20,
			DiscountTiers: []model.DiscountTier{{MinQuantity: 2, DiscountPercent: 10, Type: model.DiscountNormal}},
		},
	})
	unpriced := store.ClassOptions().Put(&model.ClassOption{Name: "Members only", Places: 8})

	lesson := newLesson(priced.ID, 0)
	require.NoError(t, svc.Create(ctx, lesson))
	free := newLesson(unpriced.ID, 0)
	require.NoError(t, svc.Create(ctx, free))

	quote, err := svc.Quote(ctx, lesson.ID, 2, false)
	require.NoError(t, err)
	assert.InDelta(t, 36.0, quote.TotalAmount, 0.001)
	assert.Equal(t, "EUR", quote.Currency)

	_, err = svc.Quote(ctx, lesson.ID, 0, false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Quote(ctx, free.ID, 1, false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestList(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, nil)
	ctx := context.Background()
	option := store.ClassOptions().Put(&model.ClassOption{Name: "Pilates", Places: 8})

	base := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	for i := 0; i < 3; i++ {
		l := newLesson(option.ID, 0)
		l.StartTime = base.Add(time.Duration(i) * time.Hour)
		l.EndTime = l.StartTime.Add(time.Hour)
		require.NoError(t, svc.Create(ctx, l))
	}

	from := base.Add(30 * time.Minute)
	lessons, total, err := svc.List(ctx, &from, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, lessons, 2)
	assert.True(t, lessons[0].StartTime.Before(lessons[1].StartTime))
}

func TestCreateClassOption(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, nil)
	ctx := context.Background()

	option := &model.ClassOption{
		Name:   "  Morning   Flow ",
		Places: 12,
		DropIn: &model.DropIn{Price: 18, Currency: " usd "},
	}
	require.NoError(t, svc.CreateClassOption(ctx, option))
	assert.Equal(t, "Morning Flow", option.Name)
	assert.Equal(t, "USD", option.DropIn.Currency)

	stored, err := svc.GetClassOption(ctx, option.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, stored.Places)

	err = svc.CreateClassOption(ctx, &model.ClassOption{Name: "No seats"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
