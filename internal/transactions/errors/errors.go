package errors

import "errors"

var (
	ErrNotFound = errors.New("transaction not found")

	ErrInvalidID = errors.New("invalid transaction ID format")
)
