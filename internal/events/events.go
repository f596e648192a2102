package events

import (
	"time"

	"classbook/internal/lockout"
	"classbook/pkg/model"
)

const (
	TypeBookingAdmitted       = "booking.admitted"
	TypeBookingStatusChanged  = "booking.status_changed"
	TypeLockoutChanged        = "lesson.lockout_changed"
	TypeWaitlistSpotAvailable = "lesson.waitlist_spot_available"

	TypePaymentCompleted = "payment.completed"
	TypePaymentFailed    = "payment.failed"
)

// Event is anything published to the classbook topics. Key is the partition
// key, so all events of one lesson stay ordered.
type Event interface {
	Type() string
	Key() string
}

type BookingAdmitted struct {
	LessonID      string              `json:"lesson_id"`
	TransactionID string              `json:"transaction_id"`
	BookingIDs    []string            `json:"booking_ids"`
	Quantity      int                 `json:"quantity"`
	Amount        float64             `json:"amount"`
	Currency      string              `json:"currency,omitempty"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	BookedBy      *model.Identity     `json:"booked_by,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

func (e BookingAdmitted) Type() string { return TypeBookingAdmitted }
func (e BookingAdmitted) Key() string  { return e.LessonID }

type BookingStatusChanged struct {
	BookingID  string              `json:"booking_id"`
	LessonID   string              `json:"lesson_id"`
	UserID     string              `json:"user_id"`
	From       model.BookingStatus `json:"from"`
	To         model.BookingStatus `json:"to"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func (e BookingStatusChanged) Type() string { return TypeBookingStatusChanged }
func (e BookingStatusChanged) Key() string  { return e.LessonID }

type LockoutChanged struct {
	LessonID   string             `json:"lesson_id"`
	Transition lockout.Transition `json:"transition"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func (e LockoutChanged) Type() string { return TypeLockoutChanged }
func (e LockoutChanged) Key() string  { return e.LessonID }

// WaitlistSpotAvailable lists the waiting bookings in the order they joined.
type WaitlistSpotAvailable struct {
	LessonID          string    `json:"lesson_id"`
	WaitingBookingIDs []string  `json:"waiting_booking_ids"`
	WaitingCount      int       `json:"waiting_count"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func (e WaitlistSpotAvailable) Type() string { return TypeWaitlistSpotAvailable }
func (e WaitlistSpotAvailable) Key() string  { return e.LessonID }

// PaymentResult is consumed from the payments topic.
type PaymentResult struct {
	TransactionID string `json:"transaction_id"`
	PaymentID     string `json:"payment_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
