// Package lockout keeps a lesson's lockout window in step with its bookings.
//
// A lesson is LOCKED while lock_out_time equals original_lock_out_time and
// UNLOCKED while lock_out_time is 0. A confirmed booking unlocks the lesson;
// losing the last confirmed booking locks it again.
package lockout

import (
	"context"
	"errors"
	"fmt"

	lessonserrors "classbook/internal/lessons/errors"
	"classbook/pkg/logger"
	"classbook/pkg/model"
)

type Transition string

const (
	TransitionUnlocked  Transition = "unlocked"
	TransitionLocked    Transition = "locked"
	TransitionUnchanged Transition = "unchanged"
	TransitionSkipped   Transition = "skipped"
)

// LessonStore writes the lockout field. Both methods return
// lessonserrors.ErrNotFound when the lesson does not exist.
type LessonStore interface {
	ClearLockOut(ctx context.Context, lessonID string) error
	RestoreLockOut(ctx context.Context, lessonID string) error
}

type BookingStore interface {
	HasConfirmedExcept(ctx context.Context, lessonID string, excludeBookingID string) (bool, error)
}

type Manager struct {
	lessons  LessonStore
	bookings BookingStore
	log      *logger.Logger
}

func NewManager(lessons LessonStore, bookings BookingStore, log *logger.Logger) *Manager {
	return &Manager{
		lessons:  lessons,
		bookings: bookings,
		log:      log,
	}
}

// OnBookingChanged must be called with the context of the transaction that
// wrote the booking, so a returned error rolls that write back.
func (m *Manager) OnBookingChanged(ctx context.Context, booking *model.Booking) (Transition, error) {
	if booking == nil || booking.LessonID == "" {
		return TransitionSkipped, nil
	}
	if booking.Status == model.BookingConfirmed {
		return m.unlock(ctx, booking.LessonID)
	}
	return m.relockIfEmpty(ctx, booking.LessonID, booking.ID)
}

// OnBookingRemoved handles a deleted booking. It can no longer hold the
// lesson open, whatever its last status was.
func (m *Manager) OnBookingRemoved(ctx context.Context, booking *model.Booking) (Transition, error) {
	if booking == nil || booking.LessonID == "" {
		return TransitionSkipped, nil
	}
	return m.relockIfEmpty(ctx, booking.LessonID, booking.ID)
}

func (m *Manager) unlock(ctx context.Context, lessonID string) (Transition, error) {
	if err := m.lessons.ClearLockOut(ctx, lessonID); err != nil {
		return m.handleWriteError(lessonID, "unlock", err)
	}
	m.log.Debug("Lesson lockout cleared", "lesson_id", lessonID)
	return TransitionUnlocked, nil
}

func (m *Manager) relockIfEmpty(ctx context.Context, lessonID, excludeBookingID string) (Transition, error) {
	hasOther, err := m.bookings.HasConfirmedExcept(ctx, lessonID, excludeBookingID)
	if err != nil {
		return "", fmt.Errorf("check confirmed bookings for lesson %s: %w", lessonID, err)
	}
	if hasOther {
		return TransitionUnchanged, nil
	}

	if err := m.lessons.RestoreLockOut(ctx, lessonID); err != nil {
		return m.handleWriteError(lessonID, "lock", err)
	}
	m.log.Debug("Lesson lockout restored", "lesson_id", lessonID)
	return TransitionLocked, nil
}

// A lesson deleted while its bookings are being processed is expected.
func (m *Manager) handleWriteError(lessonID, op string, err error) (Transition, error) {
	if errors.Is(err, lessonserrors.ErrNotFound) {
		m.log.Debug("Lesson gone before lockout update", "lesson_id", lessonID, "operation", op)
		return TransitionSkipped, nil
	}
	return "", fmt.Errorf("%s lesson %s: %w", op, lessonID, err)
}
