package model

import "time"

const (
	SlotStatusAvailable = "available"
	SlotStatusBooked    = "booked"
)

// Slot is a discrete bookable time interval published by a workshop.
// The interval is half-open: [StartTime, EndTime). ConcurrencyVersion is
// bumped on every state transition and guards the available->booked CAS.
type Slot struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	WorkshopID         string    `json:"workshop_id" bson:"workshop_id" validate:"required,mongodb"`
	StartTime          time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime            time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status             string    `json:"status" bson:"status" validate:"required,oneof=available booked"`
	ConcurrencyVersion int64     `json:"concurrency_version" bson:"concurrency_version" validate:"min=0"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// DurationMinutes reports the slot length in whole minutes.
func (s *Slot) DurationMinutes() int {
	return int(s.EndTime.Sub(s.StartTime) / time.Minute)
}

// Overlaps reports whether two half-open intervals share any point.
// Adjacent intervals that only touch at a boundary do not overlap.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}
