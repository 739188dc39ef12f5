package relay

import (
	"sync"
	"time"
)

// DefaultThrottleInterval is the minimum spacing between accepted updates
// from one connection.
const DefaultThrottleInterval = 100 * time.Millisecond

// Throttle is a fixed-window limiter keyed by connection id: an update is
// accepted when at least one interval has passed since the last accepted one.
// Not a token bucket — a burst after idle gets exactly one update through.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	last     map[string]time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	return &Throttle{
		interval: interval,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

// Allow checks and advances the window in one critical section, so two
// in-flight updates from the same connection cannot both pass.
func (t *Throttle) Allow(connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.last[connID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[connID] = now
	return true
}

// Forget drops the window state for a departed connection
func (t *Throttle) Forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, connID)
}
