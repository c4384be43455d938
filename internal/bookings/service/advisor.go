package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	slotrepo "slotter/internal/slots/repository"
	"slotter/pkg/config"
	apperrors "slotter/pkg/errors"
	"slotter/pkg/model"
)

// candidateFetchLimit bounds the look-ahead scan; a week of slots for one
// workshop fits comfortably below this.
const candidateFetchLimit = 500

// AdvisorService proposes alternative slots when a requested one cannot be
// reserved. It only reads; it never holds or transitions anything.
type AdvisorService interface {
	Suggest(ctx context.Context, workshopID string, requestedStart time.Time, durationMin int) ([]model.SlotSuggestion, error)
}

type advisorService struct {
	slotRepo slotrepo.SlotRepository
	cfg      *config.Config
}

func NewAdvisorService(slotRepo slotrepo.SlotRepository, cfg *config.Config) AdvisorService {
	return &advisorService{
		slotRepo: slotRepo,
		cfg:      cfg,
	}
}

// Suggest scans available slots around the requested time, keeps those
// long enough for the service, and returns the closest ones first. The
// window extends the configured look-ahead on both sides of the request:
// a slot an hour earlier is a better offer than one two hours later.
func (a *advisorService) Suggest(ctx context.Context, workshopID string, requestedStart time.Time, durationMin int) ([]model.SlotSuggestion, error) {
	if workshopID == "" {
		return nil, apperrors.InvalidInput("workshop_id is required")
	}
	if durationMin <= 0 {
		return nil, apperrors.InvalidInput("duration_min must be positive")
	}

	requestedStart = requestedStart.UTC()
	windowStart := requestedStart.Add(-a.cfg.SuggestionLookahead)
	windowEnd := requestedStart.Add(a.cfg.SuggestionLookahead)

	slots, err := a.slotRepo.FindAvailableByWorkshop(ctx, workshopID, &windowStart, &windowEnd, candidateFetchLimit, 0)
	if err != nil {
		return nil, apperrors.Internal("Failed to scan alternative slots", err)
	}

	suggestions := make([]model.SlotSuggestion, 0, a.cfg.SuggestionLimit)
	for _, slot := range slots {
		if slot.DurationMinutes() < durationMin {
			continue
		}
		// TimeDifferenceMinutes is the distance used for ranking; the
		// reason carries whether the slot is earlier or later.
		diff := int(slot.StartTime.Sub(requestedStart) / time.Minute)
		suggestions = append(suggestions, model.SlotSuggestion{
			SlotID:                slot.ID,
			StartTime:             slot.StartTime,
			EndTime:               slot.EndTime,
			TimeDifferenceMinutes: absMinutes(diff),
			Reason:                suggestionReason(diff),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].TimeDifferenceMinutes != suggestions[j].TimeDifferenceMinutes {
			return suggestions[i].TimeDifferenceMinutes < suggestions[j].TimeDifferenceMinutes
		}
		return suggestions[i].StartTime.Before(suggestions[j].StartTime)
	})

	if len(suggestions) > a.cfg.SuggestionLimit {
		suggestions = suggestions[:a.cfg.SuggestionLimit]
	}
	return suggestions, nil
}

func suggestionReason(diffMinutes int) string {
	switch {
	case diffMinutes == 0:
		return "starts at the requested time"
	case diffMinutes > 0 && diffMinutes < 24*60:
		return fmt.Sprintf("starts %d minutes after the requested time", diffMinutes)
	case diffMinutes > 0:
		return fmt.Sprintf("starts %d days later", diffMinutes/(24*60))
	default:
		return fmt.Sprintf("starts %d minutes before the requested time", -diffMinutes)
	}
}

func absMinutes(m int) int {
	if m < 0 {
		return -m
	}
	return m
}
