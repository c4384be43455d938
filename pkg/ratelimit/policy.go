package ratelimit

import (
	"fmt"
	"time"
)

// Policy is a named quota tier: at most Limit admissions per sliding
// Window, tracked across Segments buckets.
type Policy struct {
	Name     string
	Limit    int
	Window   time.Duration
	Segments int
}

func (p Policy) validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if p.Limit <= 0 {
		return fmt.Errorf("policy %s: limit must be positive, got %d", p.Name, p.Limit)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %s: window must be positive, got %s", p.Name, p.Window)
	}
	if p.Segments < 1 {
		return fmt.Errorf("policy %s: segments must be at least 1, got %d", p.Name, p.Segments)
	}
	return nil
}

type route struct {
	Method  string
	Pattern string
}

// Registry maps (method, route pattern) pairs to policies. It is built
// once at startup and read-only afterward; routes are matched exactly by
// their registered pattern, never by prefix or substring.
type Registry struct {
	entries map[route]Policy
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[route]Policy)}
}

func (r *Registry) Register(method, pattern string, p Policy) error {
	if err := p.validate(); err != nil {
		return err
	}
	key := route{Method: method, Pattern: pattern}
	if existing, ok := r.entries[key]; ok {
		return fmt.Errorf("route %s %s already registered with policy %s", method, pattern, existing.Name)
	}
	r.entries[key] = p
	return nil
}

// Resolve returns the policy for an exact (method, pattern) pair.
func (r *Registry) Resolve(method, pattern string) (Policy, bool) {
	p, ok := r.entries[route{Method: method, Pattern: pattern}]
	return p, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}
