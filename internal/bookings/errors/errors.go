package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrDuplicate = errors.New("booking already exists for this user and lesson")

	ErrLockHeld = errors.New("lesson lock is held by another request")

	ErrInvalidStatus = errors.New("invalid booking status")
)
