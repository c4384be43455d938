package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testPolicy(limit int, window time.Duration) Policy {
	return Policy{Name: "test", Limit: limit, Window: window, Segments: 12}
}

func TestMemoryStore_ExactlyLimitWithinWindow(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	policy := testPolicy(20, time.Minute)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		result, err := store.Take(ctx, "user-1", policy, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if result.Remaining != 20-i-1 {
			t.Errorf("request %d: expected remaining %d, got %d", i, 20-i-1, result.Remaining)
		}
	}

	result, err := store.Take(ctx, "user-1", policy, now.Add(21*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Errorf("request over limit should be rejected")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %s", result.RetryAfter)
	}
}

func TestMemoryStore_RetryAfterFullWindowAtBoundary(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	policy := testPolicy(1, time.Minute)
	// Aligned to a segment boundary so the single admission sits at the
	// very start of its segment.
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if result, _ := store.Take(ctx, "u", policy, now); !result.Allowed {
		t.Fatalf("first request should be allowed")
	}

	result, err := store.Take(ctx, "u", policy, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Fatalf("second request should be rejected")
	}
	if result.RetryAfter != time.Minute {
		t.Errorf("expected retry-after of one minute, got %s", result.RetryAfter)
	}
}

func TestMemoryStore_WindowReplenishes(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	policy := testPolicy(2, time.Minute)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store.Take(ctx, "u", policy, now)
	store.Take(ctx, "u", policy, now)

	if result, _ := store.Take(ctx, "u", policy, now.Add(30*time.Second)); result.Allowed {
		t.Fatalf("should be rejected inside the window")
	}

	// Past the window, the old admissions have expired.
	result, err := store.Take(ctx, "u", policy, now.Add(61*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("request after window expiry should be allowed")
	}
}

func TestMemoryStore_IdentitiesAreIsolated(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	policy := testPolicy(1, time.Minute)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if result, _ := store.Take(ctx, "alice", policy, now); !result.Allowed {
		t.Fatalf("alice's first request should be allowed")
	}
	if result, _ := store.Take(ctx, "bob", policy, now); !result.Allowed {
		t.Errorf("bob must not be throttled by alice's quota")
	}
	if result, _ := store.Take(ctx, "alice", policy, now); result.Allowed {
		t.Errorf("alice's second request should be rejected")
	}
}

func TestMemoryStore_PoliciesAreIsolated(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	write := Policy{Name: "reservation-write", Limit: 1, Window: time.Minute, Segments: 12}
	read := Policy{Name: "read", Limit: 1, Window: time.Minute, Segments: 12}
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store.Take(ctx, "u", write, now)
	if result, _ := store.Take(ctx, "u", read, now); !result.Allowed {
		t.Errorf("read quota must not be consumed by writes")
	}
}

// Run with -race: concurrent admissions for one identity must never
// exceed the limit.
func TestMemoryStore_ConcurrentTakes(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	policy := testPolicy(50, time.Minute)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.Take(ctx, "u", policy, now)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 admissions, got %d", allowed)
	}
}

func TestLimiter_UnregisteredRoutePassesThrough(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	limiter := NewLimiter(NewRegistry(), store)

	_, governed, err := limiter.Check(context.Background(), "u", "GET", "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if governed {
		t.Errorf("route without a policy must not be governed")
	}
}

func TestLimiter_GovernedRoute(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	registry := NewRegistry()
	policy := Policy{Name: "reservation-write", Limit: 2, Window: time.Minute, Segments: 12}
	if err := registry.Register("POST", "/api/v1/bookings", policy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter(registry, store).WithClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		result, governed, err := limiter.Check(context.Background(), "u", "POST", "/api/v1/bookings")
		if err != nil || !governed || !result.Allowed {
			t.Fatalf("request %d: governed=%v allowed=%v err=%v", i, governed, result.Allowed, err)
		}
		if result.Policy != "reservation-write" {
			t.Errorf("expected policy name on result, got %q", result.Policy)
		}
	}

	result, _, err := limiter.Check(context.Background(), "u", "POST", "/api/v1/bookings")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Errorf("third request should be rejected")
	}
}
