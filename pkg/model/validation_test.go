package model

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
)

const validObjectID = "65a1f0c2e4b0a1b2c3d4e5f6"

func TestClassOption_Tags(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name        string
		option      *ClassOption
		expectValid bool
		description string
	}{
		{
			name:        "valid option",
			option:      &ClassOption{Name: "Yin", Places: 12, DropIn: &DropIn{Price: 15, Currency: "EUR"}},
			expectValid: true,
			description: "name, places and a priced drop-in",
		},
		{
			name:        "missing places",
			option:      &ClassOption{Name: "Yin"},
			expectValid: false,
			description: "places is required",
		},
		{
			name:        "unknown currency",
			option:      &ClassOption{Name: "Yin", Places: 5, DropIn: &DropIn{Price: 15, Currency: "XXY"}},
			expectValid: false,
			description: "currency must be ISO 4217",
		},
		{
			name: "trial tier",
			option: &ClassOption{Name: "Yin", Places: 5, DropIn: &DropIn{Price: 15, DiscountTiers: []DiscountTier{
				{MinQuantity: 1, DiscountPercent: 100, Type: DiscountTrial},
			}}},
			expectValid: true,
			description: "a free trial tier is allowed",
		},
		{
			name: "percent above 100",
			option: &ClassOption{Name: "Yin", Places: 5, DropIn: &DropIn{Price: 15, DiscountTiers: []DiscountTier{
				{MinQuantity: 2, DiscountPercent: 120, Type: DiscountNormal},
			}}},
			expectValid: false,
			description: "discount_percent is capped at 100",
		},
		{
			name: "unknown tier type",
			option: &ClassOption{Name: "Yin", Places: 5, DropIn: &DropIn{Price: 15, DiscountTiers: []DiscountTier{
				{MinQuantity: 2, DiscountPercent: 10, Type: "loyalty"},
			}}},
			expectValid: false,
			description: "type is normal or trial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.option)
			if tt.expectValid && err != nil {
				t.Errorf("%s: expected valid, got %v", tt.description, err)
			}
			if !tt.expectValid && err == nil {
				t.Errorf("%s: expected validation error", tt.description)
			}
		})
	}
}

func TestLesson_Tags(t *testing.T) {
	v := validator.New()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lesson      *Lesson
		expectValid bool
		description string
	}{
		{
			name:        "valid lesson",
			lesson:      &Lesson{ClassOptionID: validObjectID, StartTime: start, EndTime: start.Add(time.Hour), LockOutTime: 60},
			expectValid: true,
			description: "option, times and lockout",
		},
		{
			name:        "ends before it starts",
			lesson:      &Lesson{ClassOptionID: validObjectID, StartTime: start, EndTime: start.Add(-time.Hour)},
			expectValid: false,
			description: "end_time must be after start_time",
		},
		{
			name:        "bad option id",
			lesson:      &Lesson{ClassOptionID: "option-1", StartTime: start, EndTime: start.Add(time.Hour)},
			expectValid: false,
			description: "class_option_id must be an ObjectID",
		},
		{
			name:        "negative lockout",
			lesson:      &Lesson{ClassOptionID: validObjectID, StartTime: start, EndTime: start.Add(time.Hour), LockOutTime: -5},
			expectValid: false,
			description: "lock_out_time cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.lesson)
			if tt.expectValid && err != nil {
				t.Errorf("%s: expected valid, got %v", tt.description, err)
			}
			if !tt.expectValid && err == nil {
				t.Errorf("%s: expected validation error", tt.description)
			}
		})
	}
}

func TestBookingStatusUpdate_Tags(t *testing.T) {
	v := validator.New()

	for _, status := range []BookingStatus{BookingPending, BookingConfirmed, BookingWaiting, BookingCancelled} {
		if err := v.Struct(&BookingStatusUpdate{Status: status}); err != nil {
			t.Errorf("status %q: expected valid, got %v", status, err)
		}
	}
	for _, status := range []BookingStatus{"", "attended"} {
		if err := v.Struct(&BookingStatusUpdate{Status: status}); err == nil {
			t.Errorf("status %q: expected validation error", status)
		}
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentCash, PaymentCard, PaymentClassPass, PaymentMembership, PaymentFree} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if PaymentMethod("cheque").Valid() {
		t.Error("cheque should not be valid")
	}
}
