package model

import "time"

type LessonBookingStatus string

const (
	LessonOpen     LessonBookingStatus = "open"
	LessonWaitlist LessonBookingStatus = "waitlist"
	LessonBooked   LessonBookingStatus = "booked"
	LessonClosed   LessonBookingStatus = "closed"
)

// Lesson is a scheduled instance of a class option. LockOutTime and
// OriginalLockOutTime are minutes before StartTime.
type Lesson struct {
	ID                  string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ClassOptionID       string    `json:"class_option_id" bson:"class_option_id" validate:"required,mongodb"`
	StartTime           time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime             time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	LockOutTime         int       `json:"lock_out_time" bson:"lock_out_time" validate:"min=0,max=10080"`
	OriginalLockOutTime *int      `json:"original_lock_out_time,omitempty" bson:"original_lock_out_time" validate:"omitempty,min=0,max=10080"`
	Location            string    `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=200"`
	Active              *bool     `json:"active,omitempty" bson:"active" validate:"omitempty"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

func (l *Lesson) IsActive() bool {
	return l.Active == nil || *l.Active
}

// OriginalLockOut returns the snapshotted lockout, falling back to the
// current value for lessons written before the snapshot existed.
func (l *Lesson) OriginalLockOut() int {
	if l.OriginalLockOutTime == nil {
		return l.LockOutTime
	}
	return *l.OriginalLockOutTime
}

// LessonAvailability is a lesson together with its derived capacity view.
type LessonAvailability struct {
	Lesson            *Lesson             `json:"lesson"`
	ClassOption       *ClassOption        `json:"class_option,omitempty"`
	Places            int                 `json:"places"`
	ConfirmedCount    int                 `json:"confirmed_count"`
	RemainingCapacity int                 `json:"remaining_capacity"`
	BookingStatus     LessonBookingStatus `json:"booking_status"`
	Overbooked        bool                `json:"overbooked,omitempty"`
}
