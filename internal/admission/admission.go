// Package admission decides whether a lesson can take a group of attendees
// and, if so, books them under one pending transaction.
package admission

import (
	"net/http"

	apperrors "classbook/pkg/errors"
	"classbook/pkg/model"
	"classbook/pkg/pricing"
)

type ErrorKind string

const (
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindLessonNotActive      ErrorKind = "LESSON_NOT_ACTIVE"
	KindInsufficientCapacity ErrorKind = "INSUFFICIENT_CAPACITY"
	KindValidation           ErrorKind = "VALIDATION"
	KindInternal             ErrorKind = "INTERNAL"
)

type Request struct {
	LessonID      string              `json:"-"`
	Attendees     []model.Attendee    `json:"attendees"`
	PaymentMethod model.PaymentMethod `json:"payment_method,omitempty"`
	BookedBy      *model.Identity     `json:"-"`
}

// Result is always returned; failures are reported in Error, never as a Go
// error.
type Result struct {
	Success     bool               `json:"success"`
	Bookings    []*model.Booking   `json:"bookings,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Pricing     *pricing.Result    `json:"pricing,omitempty"`
	Error       *Failure           `json:"error,omitempty"`
}

type Failure struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func failed(kind ErrorKind, message string, details map[string]any) *Result {
	return &Result{Error: &Failure{Kind: kind, Message: message, Details: details}}
}

// failedWith copies the message and details of err into the failure.
func failedWith(kind ErrorKind, err *apperrors.AppError) *Result {
	return failed(kind, err.Message, err.Details)
}

// AppError maps the failure onto the API error taxonomy.
func (f *Failure) AppError() *apperrors.AppError {
	var code string
	var status int

	switch f.Kind {
	case KindNotFound:
		code, status = apperrors.CodeNotFound, http.StatusNotFound
	case KindLessonNotActive:
		code, status = apperrors.CodeLessonNotActive, http.StatusConflict
	case KindInsufficientCapacity:
		code, status = apperrors.CodeInsufficientCapacity, http.StatusConflict
	case KindValidation:
		code, status = apperrors.CodeValidation, http.StatusUnprocessableEntity
	default:
		code, status = apperrors.CodeInternal, http.StatusInternalServerError
	}

	return apperrors.New(code, f.Message, status).WithDetails(f.Details)
}
