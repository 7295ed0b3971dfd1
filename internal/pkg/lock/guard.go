// Package lock provides the per-member single-flight guard for casino
// wagers: at most one wager may be in flight for a member at a time.
package lock

import (
	"errors"
	"sync"
)

// ErrInFlight is returned by Do when the member already holds the guard.
var ErrInFlight = errors.New("wager already in progress")

// Guard tracks in-flight wagers keyed by member id. Acquisition is
// non-blocking: a second wager for the same member is rejected, never
// queued.
type Guard struct {
	inflight sync.Map // map[int64]struct{}
}

// NewGuard creates a new Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// TryAcquire marks a wager as in flight for the member. Returns false if
// one is already in flight.
func (g *Guard) TryAcquire(memberID int64) bool {
	_, loaded := g.inflight.LoadOrStore(memberID, struct{}{})
	return !loaded
}

// Release clears the in-flight mark. Safe to call when not held.
func (g *Guard) Release(memberID int64) {
	g.inflight.Delete(memberID)
}

// Held reports whether a wager is currently in flight for the member.
func (g *Guard) Held(memberID int64) bool {
	_, ok := g.inflight.Load(memberID)
	return ok
}

// Do runs fn while holding the guard for the member, releasing it on
// every exit path including panics. Returns ErrInFlight without calling
// fn when the guard is already held.
func (g *Guard) Do(memberID int64, fn func() error) error {
	if !g.TryAcquire(memberID) {
		return ErrInFlight
	}
	defer g.Release(memberID)
	return fn()
}
