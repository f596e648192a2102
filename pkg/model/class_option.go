package model

import "time"

type DiscountType string

const (
	DiscountNormal DiscountType = "normal"
	DiscountTrial  DiscountType = "trial"
)

type DiscountTier struct {
	MinQuantity     int          `json:"min_quantity" bson:"min_quantity" validate:"required,min=1"`
	DiscountPercent float64      `json:"discount_percent" bson:"discount_percent" validate:"min=0,max=100"`
	Type            DiscountType `json:"type" bson:"type" validate:"required,oneof=normal trial"`
}

// DropIn is the single-visit price of a class option.
type DropIn struct {
	Price         float64        `json:"price" bson:"price" validate:"min=0"`
	Currency      string         `json:"currency,omitempty" bson:"currency,omitempty" validate:"omitempty,iso4217"`
	DiscountTiers []DiscountTier `json:"discount_tiers,omitempty" bson:"discount_tiers,omitempty" validate:"omitempty,max=20,dive"`
}

type ClassOption struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name            string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Places          int       `json:"places" bson:"places" validate:"required,min=1,max=1000"`
	WaitlistEnabled bool      `json:"waitlist_enabled" bson:"waitlist_enabled"`
	DropIn          *DropIn   `json:"drop_in,omitempty" bson:"drop_in,omitempty" validate:"omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
