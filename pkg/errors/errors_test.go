package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "lesson not found",
			},
			expected: "NOT_FOUND: lesson not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Internal("wrapped", originalErr)

	assert.Same(t, originalErr, errors.Unwrap(appErr))
	assert.ErrorIs(t, appErr, originalErr)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Lesson"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{"conflict", Conflict("busy"), CodeConflict, http.StatusConflict},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Redis"), CodeUnavailable, http.StatusServiceUnavailable},
		{"lesson not active", LessonNotActive("abc", "closed"), CodeLessonNotActive, http.StatusConflict},
		{"insufficient capacity", InsufficientCapacity("abc", 2, 1), CodeInsufficientCapacity, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "12345")

	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, "Booking not found", err.Message)
	assert.Equal(t, "12345", err.Details["id"])
	assert.Equal(t, "Booking", err.Details["resource"])
}

func TestInsufficientCapacity_Details(t *testing.T) {
	err := InsufficientCapacity("lesson-1", 2, 1)

	assert.Equal(t, "Only 1 place(s) left, 2 requested", err.Message)
	assert.Equal(t, 2, err.Details["requested"])
	assert.Equal(t, 1, err.Details["remaining"])

	overbooked := InsufficientCapacity("lesson-1", 1, -3)
	assert.Equal(t, "Only 0 place(s) left, 1 requested", overbooked.Message)
	assert.Equal(t, -3, overbooked.Details["remaining"])
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("Lesson")

	assert.True(t, IsAppError(appErr))
	assert.True(t, IsAppError(fmt.Errorf("transaction failed: %w", appErr)))
	assert.False(t, IsAppError(errors.New("regular error")))
	assert.False(t, IsAppError(nil))
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("busy")
	assert.Same(t, appErr, AsAppError(appErr))
	assert.Same(t, appErr, AsAppError(fmt.Errorf("wrapped: %w", appErr)))

	regularErr := errors.New("regular error")
	result := AsAppError(regularErr)
	assert.Equal(t, CodeInternal, result.Code)
	assert.Same(t, regularErr, result.Err)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("admit: %w", LessonNotActive("abc", "booked"))

	assert.True(t, HasCode(err, CodeLessonNotActive))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeLessonNotActive))
}
