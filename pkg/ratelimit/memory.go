package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps window state in process memory. Suitable for a
// single-instance deployment; swap for RedisStore when quotas must be
// shared (the limiter itself does not change).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowState
	idleTTL time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

type windowState struct {
	starts   []int64 // unix nanos of each segment's start; 0 = never used
	counts   []int64
	lastSeen time.Time
}

func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*windowState),
		idleTTL: idleTTL,
		stopCh:  make(chan struct{}),
	}

	go s.cleanup()

	return s
}

func (s *MemoryStore) Take(_ context.Context, identity string, policy Policy, now time.Time) (Result, error) {
	key := policy.Name + ":" + identity

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[key]
	if !ok {
		state = &windowState{
			starts: make([]int64, policy.Segments),
			counts: make([]int64, policy.Segments),
		}
		s.entries[key] = state
	}
	state.lastSeen = now

	segLen := policy.Window.Nanoseconds() / int64(policy.Segments)
	nowNano := now.UnixNano()
	segStart := nowNano - nowNano%segLen
	idx := int(segStart/segLen) % policy.Segments

	// Reclaim the ring slot if it still holds a previous rotation.
	if state.starts[idx] != segStart {
		state.starts[idx] = segStart
		state.counts[idx] = 0
	}

	cutoff := nowNano - policy.Window.Nanoseconds()
	var total int64
	var oldest int64
	for i := range state.starts {
		if state.starts[i] == 0 || state.starts[i] <= cutoff {
			continue
		}
		if state.counts[i] == 0 {
			continue
		}
		total += state.counts[i]
		if oldest == 0 || state.starts[i] < oldest {
			oldest = state.starts[i]
		}
	}

	result := Result{
		Policy: policy.Name,
		Limit:  policy.Limit,
	}

	if total >= int64(policy.Limit) {
		result.Allowed = false
		result.Remaining = 0
		result.ResetAt = time.Unix(0, oldest+policy.Window.Nanoseconds())
		result.RetryAfter = result.ResetAt.Sub(now)
		if result.RetryAfter <= 0 {
			result.RetryAfter = time.Second
		}
		return result, nil
	}

	state.counts[idx]++
	total++
	if oldest == 0 || segStart < oldest {
		oldest = segStart
	}

	result.Allowed = true
	result.Remaining = policy.Limit - int(total)
	result.ResetAt = time.Unix(0, oldest+policy.Window.Nanoseconds())
	return result, nil
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-s.idleTTL)
			s.mu.Lock()
			for key, state := range s.entries {
				if state.lastSeen.Before(cutoff) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}
