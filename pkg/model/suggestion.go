package model

import "time"

// SlotSuggestion is one alternative offered when a requested slot is taken.
// TimeDifferenceMinutes is the absolute distance from the requested start;
// Reason says whether the slot is earlier or later.
type SlotSuggestion struct {
	SlotID                string    `json:"slot_id"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	TimeDifferenceMinutes int       `json:"time_difference_minutes"`
	Reason                string    `json:"reason"`
}
