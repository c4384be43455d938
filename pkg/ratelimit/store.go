package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one admission attempt, including the quota
// metadata attached to every response so callers can self-throttle.
type Result struct {
	Allowed    bool
	Policy     string
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store holds sliding-window state per (identity, policy). Implementations
// must be safe for concurrent use; the in-memory store serves a single
// process, the Redis store shares quotas across instances.
type Store interface {
	Take(ctx context.Context, identity string, policy Policy, now time.Time) (Result, error)
	Stop()
}
