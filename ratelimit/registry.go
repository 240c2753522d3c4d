package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds the per-tier ceilings and registry bounds.
type Config struct {
	Public        int
	Authenticated int
	Payment       int
	Window        time.Duration
	MaxEntries    int           // hard cap on tracked (identity, tier) pairs
	IdleTTL       time.Duration // buckets untouched this long are evicted
	CleanupEvery  time.Duration // janitor interval; <= 0 disables the janitor
}

// DefaultConfig mirrors the production thresholds.
func DefaultConfig() Config {
	return Config{
		Public:        20,
		Authenticated: 100,
		Payment:       10,
		Window:        60 * time.Second,
		MaxEntries:    10000,
		IdleTTL:       2 * time.Hour,
		CleanupEvery:  2 * time.Minute,
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time     // when the current window's allowance renews
	RetryAfter time.Duration // set only on denial
}

type entry struct {
	b        *bucket
	lastSeen time.Time
}

// Registry owns a bounded, expiring collection of buckets keyed by
// identity+tier. It is constructed once and injected wherever admission
// checks are needed; buckets are never mutated outside Admit.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	cfg     Config
	nowFunc func() time.Time
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	return &Registry{
		entries: make(map[string]*entry),
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

func (r *Registry) capacityFor(tier Tier) int {
	switch tier {
	case TierPayment:
		return r.cfg.Payment
	case TierAuthenticated:
		return r.cfg.Authenticated
	default:
		return r.cfg.Public
	}
}

// Admit consumes one token for the given identity and tier. It never fails:
// every call resolves to an allow or deny decision.
func (r *Registry) Admit(identity string, tier Tier) Decision {
	now := r.nowFunc()
	b := r.getOrCreate(identity, tier, now)

	allowed, remaining := b.take(now)
	d := Decision{
		Allowed:   allowed,
		Limit:     b.capacity,
		Remaining: remaining,
		Reset:     now.Add(r.cfg.Window),
	}
	if !allowed {
		d.RetryAfter = r.cfg.Window
	}
	return d
}

// Peek reports the remaining allowance without consuming a token. The second
// return is false when no bucket exists yet for the pair.
func (r *Registry) Peek(identity string, tier Tier) (int, bool) {
	now := r.nowFunc()

	r.mu.Lock()
	ent, ok := r.entries[key(identity, tier)]
	r.mu.Unlock()
	if !ok {
		return 0, false
	}
	return ent.b.peek(now), true
}

// Len returns the number of tracked (identity, tier) pairs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func key(identity string, tier Tier) string {
	return identity + ":" + string(tier)
}

// getOrCreate is the single insertion path: concurrent first accesses for the
// same pair observe one bucket, never two.
func (r *Registry) getOrCreate(identity string, tier Tier, now time.Time) *bucket {
	k := key(identity, tier)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ent, ok := r.entries[k]; ok {
		ent.lastSeen = now
		return ent.b
	}
	if len(r.entries) >= r.cfg.MaxEntries {
		r.evictOldestLocked()
	}
	b := newBucket(r.capacityFor(tier), r.cfg.Window, now)
	r.entries[k] = &entry{b: b, lastSeen: now}
	return b
}

// evictOldestLocked drops the least-recently-seen entry. Caller holds r.mu.
func (r *Registry) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, ent := range r.entries {
		if oldestKey == "" || ent.lastSeen.Before(oldest) {
			oldestKey = k
			oldest = ent.lastSeen
		}
	}
	if oldestKey != "" {
		delete(r.entries, oldestKey)
	}
}

// Cleanup removes entries idle past the configured TTL.
func (r *Registry) Cleanup() {
	cutoff := r.nowFunc().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, ent := range r.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(r.entries, k)
		}
	}
}

// StartJanitor launches a goroutine that cleans idle buckets periodically.
// Stop it by cancelling the context.
func (r *Registry) StartJanitor(ctx context.Context) {
	if r.cfg.CleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(r.cfg.CleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Cleanup()
			}
		}
	}()
}
