package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrSlotUnavailable = errors.New("slot is not available")

	ErrInvalidTransition = errors.New("invalid booking status transition")
)
