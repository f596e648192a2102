package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/internal/bookings/repository"
	"classbook/pkg/logger"

	"github.com/google/uuid"
)

const (
	lockBackoffStart = 20 * time.Millisecond
	lockBackoffMax   = 200 * time.Millisecond
)

// LessonLocker serializes capacity checks and booking writes per lesson.
type LessonLocker struct {
	repo repository.BookingLockRepository
	ttl  time.Duration
	wait time.Duration
	log  *logger.Logger
}

func NewLessonLocker(repo repository.BookingLockRepository, ttl, wait time.Duration, log *logger.Logger) *LessonLocker {
	return &LessonLocker{
		repo: repo,
		ttl:  ttl,
		wait: wait,
		log:  log,
	}
}

// Lock retries while another request holds the lesson, for up to the
// configured wait. It returns bookingserrors.ErrLockHeld when the wait runs
// out. The returned unlock func is safe to defer.
func (l *LessonLocker) Lock(ctx context.Context, lessonID string) (func(), error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := lockBackoffStart

	for {
		err := l.repo.Acquire(ctx, lessonID, owner, l.ttl)
		if err == nil {
			break
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			return nil, err
		}
		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("lesson %s: %w", lessonID, bookingserrors.ErrLockHeld)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, lockBackoffMax)
	}

	unlock := func() {
		// Release even when the request context is already cancelled.
		if err := l.repo.Release(context.WithoutCancel(ctx), lessonID, owner); err != nil {
			l.log.Warn("Failed to release lesson lock", "lesson_id", lessonID, "error", err)
		}
	}
	return unlock, nil
}
