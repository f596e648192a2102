package model

import "time"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCard       PaymentMethod = "card"
	PaymentClassPass  PaymentMethod = "class_pass"
	PaymentMembership PaymentMethod = "membership"
	PaymentFree       PaymentMethod = "free"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentClassPass, PaymentMembership, PaymentFree:
		return true
	}
	return false
}

type Transaction struct {
	ID            string            `json:"id,omitempty" bson:"_id,omitempty"`
	LessonID      string            `json:"lesson_id" bson:"lesson_id"`
	Status        TransactionStatus `json:"status" bson:"status"`
	PaymentMethod PaymentMethod     `json:"payment_method" bson:"payment_method"`
	Amount        float64           `json:"amount" bson:"amount"`
	Currency      string            `json:"currency,omitempty" bson:"currency,omitempty"`
	Quantity      int               `json:"quantity" bson:"quantity"`
	BookedBy      *Identity         `json:"booked_by,omitempty" bson:"booked_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
}
