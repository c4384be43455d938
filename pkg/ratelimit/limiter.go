package ratelimit

import (
	"context"
	"time"
)

// Limiter ties the policy registry to a window store. Routes without a
// registered policy pass through unlimited; that is a wiring decision made
// explicit at startup, not a fallback match.
type Limiter struct {
	registry *Registry
	store    Store
	now      func() time.Time
}

func NewLimiter(registry *Registry, store Store) *Limiter {
	return &Limiter{
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// WithClock injects a clock, primarily for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Check admits or rejects one request for identity on the given route.
// The second return reports whether a policy governs the route at all.
func (l *Limiter) Check(ctx context.Context, identity, method, pattern string) (Result, bool, error) {
	policy, ok := l.registry.Resolve(method, pattern)
	if !ok {
		return Result{}, false, nil
	}

	result, err := l.store.Take(ctx, identity, policy, l.now())
	if err != nil {
		return Result{}, true, err
	}
	return result, true, nil
}

func (l *Limiter) Stop() {
	l.store.Stop()
}
