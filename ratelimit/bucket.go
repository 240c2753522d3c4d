package ratelimit

import (
	"sync"
	"time"
)

// Tier classifies traffic into independently limited classes.
type Tier string

const (
	TierPublic        Tier = "PUBLIC"
	TierAuthenticated Tier = "AUTHENTICATED"
	TierPayment       Tier = "PAYMENT"
)

// bucket is a fixed-window counter for one (identity, tier) pair. The whole
// window's allowance comes back at once on expiry rather than leaking in
// continuously. Bursts at window boundaries are possible.
type bucket struct {
	mu         sync.Mutex
	capacity   int
	window     time.Duration
	remaining  int
	lastRefill time.Time
}

func newBucket(capacity int, window time.Duration, now time.Time) *bucket {
	return &bucket{
		capacity:   capacity,
		window:     window,
		remaining:  capacity,
		lastRefill: now,
	}
}

// take consumes one token, refilling first if the window has elapsed.
// The lock is held only for the check-and-decrement, never across I/O.
func (b *bucket) take(now time.Time) (allowed bool, remaining int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastRefill) >= b.window {
		b.remaining = b.capacity
		b.lastRefill = now
	}
	if b.remaining > 0 {
		b.remaining--
		return true, b.remaining
	}
	return false, 0
}

// peek reports remaining tokens without consuming one.
func (b *bucket) peek(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastRefill) >= b.window {
		return b.capacity
	}
	return b.remaining
}
