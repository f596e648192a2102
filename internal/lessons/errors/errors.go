package errors

import "errors"

var (
	ErrNotFound = errors.New("lesson not found")

	ErrInvalidID = errors.New("invalid lesson ID format")

	ErrClassOptionNotFound = errors.New("class option not found")

	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
