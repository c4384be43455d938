package ratelimit

import (
	"testing"
	"time"
)

func TestWindowResult(t *testing.T) {
	policy := Policy{Name: "write", Limit: 20, Window: time.Minute, Segments: 12}
	now := time.Date(2026, 9, 1, 12, 0, 30, 0, time.UTC)

	t.Run("allowed counts itself against remaining", func(t *testing.T) {
		result := windowResult(policy, now, true, 1, now.UnixMilli())

		if !result.Allowed {
			t.Fatal("expected allowed")
		}
		if result.Remaining != 19 {
			t.Errorf("expected remaining 19, got %d", result.Remaining)
		}
		if !result.ResetAt.Equal(now.Add(time.Minute)) {
			t.Errorf("expected reset one window after the only attempt, got %v", result.ResetAt)
		}
	})

	t.Run("denied computes retry from the oldest attempt", func(t *testing.T) {
		oldest := now.Add(-40 * time.Second)
		result := windowResult(policy, now, false, 20, oldest.UnixMilli())

		if result.Allowed {
			t.Fatal("expected denied")
		}
		if result.Remaining != 0 {
			t.Errorf("expected remaining 0, got %d", result.Remaining)
		}
		// The oldest attempt leaves the window 20 seconds from now.
		if result.RetryAfter != 20*time.Second {
			t.Errorf("expected retry after 20s, got %v", result.RetryAfter)
		}
		if !result.ResetAt.Equal(oldest.Add(time.Minute)) {
			t.Errorf("expected reset at oldest+window, got %v", result.ResetAt)
		}
	})

	t.Run("denied with stale oldest still waits at least a second", func(t *testing.T) {
		oldest := now.Add(-2 * time.Minute)
		result := windowResult(policy, now, false, 20, oldest.UnixMilli())

		if result.RetryAfter != time.Second {
			t.Errorf("expected floor of 1s, got %v", result.RetryAfter)
		}
	})

	t.Run("empty window falls back to now plus window", func(t *testing.T) {
		result := windowResult(policy, now, true, 1, 0)

		if !result.ResetAt.Equal(now.Add(time.Minute)) {
			t.Errorf("expected reset now+window, got %v", result.ResetAt)
		}
	})
}

func TestWindowMember_UniquePerCall(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 30, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		member := windowMember(now)
		if seen[member] {
			t.Fatalf("duplicate member for the same instant: %s", member)
		}
		seen[member] = true
	}
}
