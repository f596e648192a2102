package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/internal/testutil/memstore"
	"classbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonLocker_SerializesPerLesson(t *testing.T) {
	store := memstore.New()
	locker := NewLessonLocker(store.Locks(), time.Second, 2*time.Second, logger.Discard())
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for j := 0; j < 5; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "lesson-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.False(t, store.Locks().Held("lesson-1"))
}

func TestLessonLocker_GivesUp(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Locks().Acquire(context.Background(), "lesson-1", "someone", time.Minute))
	locker := NewLessonLocker(store.Locks(), time.Second, 50*time.Millisecond, logger.Discard())

	start := time.Now()
	_, err := locker.Lock(context.Background(), "lesson-1")
	assert.ErrorIs(t, err, bookingserrors.ErrLockHeld)
	assert.Less(t, time.Since(start), time.Second)

	unlock, err := locker.Lock(context.Background(), "lesson-2")
	require.NoError(t, err)
	unlock()
}

func TestLessonLocker_ContextCancelled(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Locks().Acquire(context.Background(), "lesson-1", "someone", time.Minute))
	locker := NewLessonLocker(store.Locks(), time.Second, time.Minute, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := locker.Lock(ctx, "lesson-1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
