package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingWaiting   BookingStatus = "waiting"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingWaiting, BookingCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	LessonID      string        `json:"lesson_id" bson:"lesson_id" validate:"required,mongodb"`
	UserID        string        `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	Status        BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed waiting cancelled"`
	TransactionID string        `json:"transaction_id,omitempty" bson:"transaction_id,omitempty" validate:"omitempty,mongodb"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type BookingStatusUpdate struct {
	Status BookingStatus `json:"status" validate:"required,oneof=pending confirmed waiting cancelled"`
}
