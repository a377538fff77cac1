// Package pending remembers moves this client just submitted so that their
// push-channel echo can be recognised and skipped.
package pending

import (
	"fmt"
	"time"

	"chesssync/internal/board"
)

// DefaultTTL bounds how long a submitted move waits for its echo.
const DefaultTTL = 4000 * time.Millisecond

// Registry is an expiring set of move signatures. It is not safe for
// concurrent use; the sync controller only touches it from its event loop.
type Registry struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) { r.ttl = d }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Signature identifies the ordered (from, to) pair.
func Signature(from, to board.Position) string {
	return fmt.Sprintf("%d-%d>%d-%d", from.Row, from.Col, to.Row, to.Col)
}

// Register records a move as awaiting its echo. Registering the same pair
// again restarts its TTL.
func (r *Registry) Register(from, to board.Position) {
	now := r.now()
	r.sweep(now)
	r.entries[Signature(from, to)] = now
}

// ConsumeIfPresent removes the pair and reports whether it was pending.
func (r *Registry) ConsumeIfPresent(from, to board.Position) bool {
	r.sweep(r.now())
	sig := Signature(from, to)
	if _, ok := r.entries[sig]; !ok {
		return false
	}
	delete(r.entries, sig)
	return true
}

// Len returns the number of unexpired entries.
func (r *Registry) Len() int {
	r.sweep(r.now())
	return len(r.entries)
}

func (r *Registry) sweep(now time.Time) {
	for sig, at := range r.entries {
		if now.Sub(at) >= r.ttl {
			delete(r.entries, sig)
		}
	}
}
