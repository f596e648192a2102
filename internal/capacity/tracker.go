// Package capacity derives a lesson's remaining seats and booking status from
// its confirmed bookings. Nothing here touches storage.
package capacity

import (
	"time"

	"classbook/pkg/model"
)

type Input struct {
	Places          int
	ConfirmedCount  int
	Active          bool
	StartTime       time.Time
	LockOutMinutes  int
	WaitlistEnabled bool
	Now             time.Time
}

type Availability struct {
	RemainingCapacity int                       `json:"remaining_capacity"`
	BookingStatus     model.LessonBookingStatus `json:"booking_status"`
	Overbooked        bool                      `json:"overbooked,omitempty"`
}

func CountConfirmed(bookings []*model.Booking) int {
	n := 0
	for _, b := range bookings {
		if b != nil && b.Status == model.BookingConfirmed {
			n++
		}
	}
	return n
}

// Evaluate never clamps RemainingCapacity. A negative value is reported
// through Overbooked for the caller to log.
func Evaluate(in Input) Availability {
	remaining := in.Places - in.ConfirmedCount
	a := Availability{
		RemainingCapacity: remaining,
		Overbooked:        remaining < 0,
	}

	switch {
	case IsClosed(in.Active, in.StartTime, in.LockOutMinutes, in.Now):
		a.BookingStatus = model.LessonClosed
	case remaining <= 0 && in.WaitlistEnabled:
		a.BookingStatus = model.LessonWaitlist
	case remaining <= 0:
		a.BookingStatus = model.LessonBooked
	default:
		a.BookingStatus = model.LessonOpen
	}
	return a
}

// IsClosed reports whether a lesson stopped taking bookings: it is inactive,
// it has started, or now falls inside the lockout window before start.
func IsClosed(active bool, start time.Time, lockOutMinutes int, now time.Time) bool {
	if !active {
		return true
	}
	if !now.Before(start) {
		return true
	}
	if lockOutMinutes > 0 {
		cutoff := start.Add(-time.Duration(lockOutMinutes) * time.Minute)
		if !now.Before(cutoff) {
			return true
		}
	}
	return false
}

// ForLesson evaluates a lesson against its class option.
func ForLesson(lesson *model.Lesson, option *model.ClassOption, confirmed int, now time.Time) Availability {
	in := Input{
		ConfirmedCount: confirmed,
		Active:         lesson.IsActive(),
		StartTime:      lesson.StartTime,
		LockOutMinutes: lesson.LockOutTime,
		Now:            now,
	}
	if option != nil {
		in.Places = option.Places
		in.WaitlistEnabled = option.WaitlistEnabled
	}
	return Evaluate(in)
}
