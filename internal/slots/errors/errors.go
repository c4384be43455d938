package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	ErrTimeOverlap = errors.New("slot overlaps an existing slot for this workshop")

	ErrAlreadyBooked = errors.New("slot is already booked")

	ErrVersionConflict = errors.New("slot was modified concurrently")
)
