package model

import "time"

// Workshop and Service are owned by an external CRUD surface. This
// service only reads them: the workshop for ownership checks, the
// service for duration and active-state validation.
type Workshop struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID string `json:"owner_id" bson:"owner_id"`
	Name    string `json:"name" bson:"name"`
}

type Service struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	WorkshopID  string    `json:"workshop_id" bson:"workshop_id"`
	Name        string    `json:"name" bson:"name"`
	DurationMin int       `json:"duration_min" bson:"duration_min"`
	Active      bool      `json:"active" bson:"active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}
