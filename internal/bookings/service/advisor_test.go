package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"slotter/pkg/config"
	"slotter/pkg/logger"
	"slotter/pkg/model"
)

func newAdvisorFixture(slots ...*model.Slot) AdvisorService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        5 * time.Second,
		SuggestionLookahead: 7 * 24 * time.Hour,
		SuggestionLimit:     5,
	}
	return NewAdvisorService(newWindowedSlotRepo(slots...), cfg)
}

// windowedSlotRepo applies the repository's window filter so the advisor
// sees the same candidate set a real query would return.
type windowedSlotRepo struct {
	*memorySlotRepo
}

func newWindowedSlotRepo(slots ...*model.Slot) *windowedSlotRepo {
	return &windowedSlotRepo{memorySlotRepo: newMemorySlotRepo(slots...)}
}

func (w *windowedSlotRepo) FindAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []*model.Slot
	for _, slot := range w.slots {
		if slot.WorkshopID != workshopID || slot.Status != model.SlotStatusAvailable {
			continue
		}
		if from != nil && slot.StartTime.Before(*from) {
			continue
		}
		if to != nil && slot.EndTime.After(*to) {
			continue
		}
		snapshot := *slot
		out = append(out, &snapshot)
	}
	return out, nil
}

func advisorSlot(id string, start time.Time, duration time.Duration) *model.Slot {
	return &model.Slot{
		ID:         id,
		WorkshopID: testWorkshopID,
		StartTime:  start,
		EndTime:    start.Add(duration),
		Status:     model.SlotStatusAvailable,
	}
}

func TestSuggest_RankedByProximity(t *testing.T) {
	requested := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	advisor := newAdvisorFixture(
		advisorSlot("68b1c2d3e4f5a6b7c8d9e101", requested.Add(26*time.Hour), time.Hour),
		advisorSlot("68b1c2d3e4f5a6b7c8d9e102", requested.Add(2*time.Hour), time.Hour),
		advisorSlot("68b1c2d3e4f5a6b7c8d9e103", requested.Add(30*time.Minute), time.Hour),
	)

	suggestions, err := advisor.Suggest(context.Background(), testWorkshopID, requested, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(suggestions))
	}

	wantOrder := []string{"68b1c2d3e4f5a6b7c8d9e103", "68b1c2d3e4f5a6b7c8d9e102", "68b1c2d3e4f5a6b7c8d9e101"}
	for i, want := range wantOrder {
		if suggestions[i].SlotID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, suggestions[i].SlotID)
		}
	}

	if suggestions[0].TimeDifferenceMinutes != 30 {
		t.Errorf("expected 30 minute difference, got %d", suggestions[0].TimeDifferenceMinutes)
	}
	if suggestions[0].Reason == "" {
		t.Error("expected a human-readable reason")
	}
}

func TestSuggest_OffersEarlierSlots(t *testing.T) {
	requested := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

	advisor := newAdvisorFixture(
		advisorSlot("68b1c2d3e4f5a6b7c8d9e401", requested.Add(-time.Hour), time.Hour),
		advisorSlot("68b1c2d3e4f5a6b7c8d9e402", requested.Add(2*time.Hour), time.Hour),
	)

	suggestions, err := advisor.Suggest(context.Background(), testWorkshopID, requested, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(suggestions), suggestions)
	}

	// The 09:00 slot is closer than the 12:00 one and must come first.
	if suggestions[0].SlotID != "68b1c2d3e4f5a6b7c8d9e401" {
		t.Errorf("expected the earlier slot first, got %s", suggestions[0].SlotID)
	}
	if suggestions[0].TimeDifferenceMinutes != 60 {
		t.Errorf("expected distance 60 for the 09:00 slot, got %d", suggestions[0].TimeDifferenceMinutes)
	}
	if suggestions[1].SlotID != "68b1c2d3e4f5a6b7c8d9e402" {
		t.Errorf("expected the 12:00 slot second, got %s", suggestions[1].SlotID)
	}
	if suggestions[1].TimeDifferenceMinutes != 120 {
		t.Errorf("expected distance 120 for the 12:00 slot, got %d", suggestions[1].TimeDifferenceMinutes)
	}

	if suggestions[0].Reason != "starts 60 minutes before the requested time" {
		t.Errorf("reason should state the slot is earlier, got %q", suggestions[0].Reason)
	}
}

func TestSuggest_FiltersAndCaps(t *testing.T) {
	requested := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	t.Run("slots shorter than the service are skipped", func(t *testing.T) {
		advisor := newAdvisorFixture(
			advisorSlot("68b1c2d3e4f5a6b7c8d9e201", requested.Add(time.Hour), 15*time.Minute),
			advisorSlot("68b1c2d3e4f5a6b7c8d9e202", requested.Add(2*time.Hour), time.Hour),
		)

		suggestions, err := advisor.Suggest(context.Background(), testWorkshopID, requested, 45)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 1 || suggestions[0].SlotID != "68b1c2d3e4f5a6b7c8d9e202" {
			t.Errorf("expected only the hour-long slot, got %+v", suggestions)
		}
	})

	t.Run("slots beyond the window on either side are excluded", func(t *testing.T) {
		advisor := newAdvisorFixture(
			advisorSlot("68b1c2d3e4f5a6b7c8d9e301", requested.Add(8*24*time.Hour), time.Hour),
			advisorSlot("68b1c2d3e4f5a6b7c8d9e302", requested.Add(-8*24*time.Hour), time.Hour),
		)

		suggestions, err := advisor.Suggest(context.Background(), testWorkshopID, requested, 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 0 {
			t.Errorf("expected no suggestions, got %d", len(suggestions))
		}
	})

	t.Run("result is capped", func(t *testing.T) {
		slots := make([]*model.Slot, 0, 8)
		for i := 0; i < 8; i++ {
			slots = append(slots, advisorSlot(
				primitiveHex(0x500+i),
				requested.Add(time.Duration(i+1)*time.Hour),
				time.Hour,
			))
		}
		advisor := newAdvisorFixture(slots...)

		suggestions, err := advisor.Suggest(context.Background(), testWorkshopID, requested, 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 5 {
			t.Errorf("expected cap of 5 suggestions, got %d", len(suggestions))
		}
		for i := 1; i < len(suggestions); i++ {
			if suggestions[i].TimeDifferenceMinutes < suggestions[i-1].TimeDifferenceMinutes {
				t.Errorf("suggestions out of order at %d", i)
			}
		}
	})

	t.Run("missing workshop_id rejected", func(t *testing.T) {
		advisor := newAdvisorFixture()

		_, err := advisor.Suggest(context.Background(), "", requested, 30)
		if got := statusOf(t, err); got != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", got)
		}
	})
}
