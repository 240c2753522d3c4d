package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Public = 5
	cfg.Authenticated = 100
	cfg.Payment = 10
	cfg.Window = 60 * time.Second
	return cfg
}

func TestAdmit_ExactCapacityWithinWindow(t *testing.T) {
	r := NewRegistry(testConfig())

	var allowed int64
	var g errgroup.Group
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			if r.Admit("ip:10.0.0.1", TierPublic).Allowed {
				atomic.AddInt64(&allowed, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if allowed != 5 {
		t.Fatalf("expected exactly 5 allowed calls within one window, got %d", allowed)
	}
}

func TestAdmit_WindowResetRestoresCapacity(t *testing.T) {
	r := NewRegistry(testConfig())
	base := time.Now()
	r.nowFunc = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		if d := r.Admit("ip:10.0.0.2", TierPublic); !d.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if d := r.Admit("ip:10.0.0.2", TierPublic); d.Allowed {
		t.Fatal("6th call within the window should be denied")
	}

	// Cross the window boundary
	r.nowFunc = func() time.Time { return base.Add(61 * time.Second) }
	d := r.Admit("ip:10.0.0.2", TierPublic)
	if !d.Allowed {
		t.Fatal("first call after window reset should be allowed")
	}
	if d.Remaining != 4 {
		t.Fatalf("expected remaining=4 after reset and one consume, got %d", d.Remaining)
	}
}

func TestAdmit_DenialDecision(t *testing.T) {
	cfg := testConfig()
	r := NewRegistry(cfg)

	for i := 0; i < 5; i++ {
		r.Admit("ip:10.0.0.3", TierPublic)
	}
	d := r.Admit("ip:10.0.0.3", TierPublic)
	if d.Allowed {
		t.Fatal("expected denial after capacity exhausted")
	}
	if d.Remaining != 0 {
		t.Fatalf("expected remaining=0 on denial, got %d", d.Remaining)
	}
	if d.RetryAfter != cfg.Window {
		t.Fatalf("expected retry-after=%v, got %v", cfg.Window, d.RetryAfter)
	}
	if d.Limit != 5 {
		t.Fatalf("expected limit=5, got %d", d.Limit)
	}
}

func TestConcurrentFirstAccess_SingleBucket(t *testing.T) {
	r := NewRegistry(testConfig())

	// All goroutines hit a fresh key at once; a double-created bucket would
	// let more than capacity calls through.
	var allowed int64
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if r.Admit("user:42", TierPublic).Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if allowed != 5 {
		t.Fatalf("expected 5 allowed (single shared bucket), got %d", allowed)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one registry entry, got %d", r.Len())
	}
}

func TestTierCapacities(t *testing.T) {
	r := NewRegistry(testConfig())

	cases := []struct {
		tier Tier
		want int
	}{
		{TierPublic, 5},
		{TierAuthenticated, 100},
		{TierPayment, 10},
	}
	for _, tc := range cases {
		d := r.Admit("user:7", tc.tier)
		if d.Limit != tc.want {
			t.Fatalf("tier %s: expected limit %d, got %d", tc.tier, tc.want, d.Limit)
		}
	}
	// Same identity, different tiers: independent buckets
	if r.Len() != 3 {
		t.Fatalf("expected 3 entries for 3 tiers, got %d", r.Len())
	}
}

func TestPeek_DoesNotConsume(t *testing.T) {
	r := NewRegistry(testConfig())

	if _, ok := r.Peek("ip:10.0.0.4", TierPublic); ok {
		t.Fatal("peek on unknown key should report no bucket")
	}

	r.Admit("ip:10.0.0.4", TierPublic)
	before, ok := r.Peek("ip:10.0.0.4", TierPublic)
	if !ok {
		t.Fatal("expected bucket to exist after admit")
	}
	after, _ := r.Peek("ip:10.0.0.4", TierPublic)
	if before != 4 || after != 4 {
		t.Fatalf("peek must not consume tokens: got %d then %d", before, after)
	}
}

func TestEviction_MaxEntries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 3
	r := NewRegistry(cfg)
	base := time.Now()
	now := base
	r.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		r.Admit(fmt.Sprintf("ip:10.0.1.%d", i), TierPublic)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", r.Len())
	}

	// The fourth identity pushes out the least recently seen one
	now = base.Add(10 * time.Second)
	r.Admit("ip:10.0.1.99", TierPublic)
	if r.Len() != 3 {
		t.Fatalf("expected registry to stay bounded at 3, got %d", r.Len())
	}
	if _, ok := r.Peek("ip:10.0.1.0", TierPublic); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	if _, ok := r.Peek("ip:10.0.1.99", TierPublic); !ok {
		t.Fatal("expected newest entry to be present")
	}
}

func TestCleanup_RemovesIdleEntries(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTTL = time.Hour
	r := NewRegistry(cfg)
	base := time.Now()
	r.nowFunc = func() time.Time { return base }

	r.Admit("ip:10.0.2.1", TierPublic)
	r.nowFunc = func() time.Time { return base.Add(30 * time.Minute) }
	r.Admit("ip:10.0.2.2", TierPublic)

	// Two hours later only the untouched first entry is past the TTL
	r.nowFunc = func() time.Time { return base.Add(85 * time.Minute) }
	r.Cleanup()

	if _, ok := r.Peek("ip:10.0.2.1", TierPublic); ok {
		t.Fatal("expected idle entry to be cleaned up")
	}
	if _, ok := r.Peek("ip:10.0.2.2", TierPublic); !ok {
		t.Fatal("expected recently seen entry to survive cleanup")
	}
}
