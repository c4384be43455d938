package model

import "time"

const (
	BookingStatusRequested = "requested"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCanceled  = "canceled"
)

type CustomerInfo struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" bson:"phone" validate:"required,e164"`
	Email string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
}

// Booking is one customer's claim on one specific slot for one service.
// A slot maps to at most one booking, ever; canceling a booking does not
// release its slot.
type Booking struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SlotID    string `json:"slot_id" bson:"slot_id" validate:"required,mongodb"`
	ServiceID string `json:"service_id" bson:"service_id" validate:"required,mongodb"`
	// WorkshopID is denormalized from the slot at reservation time so
	// per-workshop reporting needs no join.
	WorkshopID string       `json:"workshop_id,omitempty" bson:"workshop_id,omitempty" validate:"omitempty,mongodb"`
	Customer   CustomerInfo `json:"customer" bson:"customer" validate:"required"`
	Status     string       `json:"status" bson:"status" validate:"required,oneof=requested confirmed completed canceled"`
	CreatedAt  time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt  time.Time    `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// WorkshopBookingStats aggregates booking counts for one workshop.
type WorkshopBookingStats struct {
	WorkshopID string           `json:"workshop_id"`
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
}

// AllowedBookingTransitions is the post-reservation lifecycle. Slot status
// is untouched by every one of these transitions.
var AllowedBookingTransitions = map[string][]string{
	BookingStatusRequested: {BookingStatusConfirmed, BookingStatusCanceled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCanceled},
	BookingStatusCompleted: {},
	BookingStatusCanceled:  {},
}

func CanTransitionBooking(from, to string) bool {
	for _, allowed := range AllowedBookingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
