package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/netpulse/netpulse/pkg/types"
)

func batch(id string) *types.Batch {
	return &types.Batch{ID: id, Devices: []types.Device{{DeviceID: "Device_1"}}}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(batch("b-1"), OriginAgent)

	e, ok := st.Get("b-1")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Batch.ID != "b-1" {
		t.Errorf("ID: got %q, want b-1", e.Batch.ID)
	}
	if e.Origin != OriginAgent {
		t.Errorf("Origin: got %q, want agent", e.Origin)
	}
}

func TestPut_ReturnsEntryEvenWhenStale(t *testing.T) {
	st := New(time.Nanosecond)
	base := time.Now()
	st.now = fixedClock(base)

	e := st.Put(batch("b-1"), OriginAPI)
	if e == nil || e.Batch.ID != "b-1" || e.Origin != OriginAPI {
		t.Fatalf("Put: got %+v", e)
	}

	st.now = fixedClock(base.Add(time.Second))
	if _, ok := st.Get("b-1"); ok {
		t.Fatal("Get after ttl: expected stale entry to be missing")
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5 * time.Minute)
	if _, ok := st.Get("unknown"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestGet_StaleIsMissing(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(batch("old"), OriginAgent)

	st.now = fixedClock(base)
	if _, ok := st.Get("old"); ok {
		t.Fatal("Get: stale entry should be reported missing")
	}
}

func TestPut_Overwrites(t *testing.T) {
	st := New(5 * time.Minute)
	b1 := batch("b")
	b2 := batch("b")
	b2.Devices = append(b2.Devices, types.Device{DeviceID: "Device_2"})

	st.Put(b1, OriginAgent)
	st.Put(b2, OriginAPI)

	e, ok := st.Get("b")
	if !ok {
		t.Fatal("Get: expected entry after two Puts")
	}
	if len(e.Batch.Devices) != 2 || e.Origin != OriginAPI {
		t.Errorf("entry not replaced: %+v", e)
	}
}

func TestList_ExcludesStaleNewestFirst(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute)) // stale
	st.Put(batch("old"), OriginAgent)

	st.now = fixedClock(base)
	st.Put(batch("first"), OriginAgent)
	st.Put(batch("second"), OriginAgent)
	st.Put(batch("third"), OriginAPI)

	entries := st.List()
	if len(entries) != 3 {
		t.Fatalf("List: got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"third", "second", "first"} {
		if entries[i].Batch.ID != want {
			t.Errorf("List[%d]: got %q, want %q", i, entries[i].Batch.ID, want)
		}
	}
}

func TestLatest(t *testing.T) {
	st := New(5 * time.Minute)
	if _, ok := st.Latest(); ok {
		t.Fatal("Latest on empty store: expected false")
	}

	st.Put(batch("a"), OriginAgent)
	st.Put(batch("b"), OriginAgent)
	st.Put(batch("a"), OriginAgent) // re-put makes it newest again

	e, ok := st.Latest()
	if !ok || e.Batch.ID != "a" {
		t.Fatalf("Latest: got %v, want a", e)
	}
}

func TestLatest_IgnoresStale(t *testing.T) {
	base := time.Now()
	st := New(time.Minute)
	st.now = fixedClock(base)
	st.Put(batch("a"), OriginAgent)

	st.now = fixedClock(base.Add(2 * time.Minute))
	if _, ok := st.Latest(); ok {
		t.Fatal("Latest should ignore stale entries")
	}
}

func TestCount_IncludesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(batch("old"), OriginAgent)

	st.now = fixedClock(base)
	st.Put(batch("new"), OriginAgent)

	if n := st.Count(); n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(batch("old1"), OriginAgent)
	st.Put(batch("old2"), OriginAgent)

	st.now = fixedClock(base)
	st.Put(batch("live"), OriginAgent)

	if removed := st.Evict(base); removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
}

func TestZeroTTL_NeverExpires(t *testing.T) {
	base := time.Now()
	st := New(0)
	st.now = fixedClock(base.Add(-24 * time.Hour))
	st.Put(batch("ancient"), OriginAgent)

	st.now = fixedClock(base)
	if _, ok := st.Get("ancient"); !ok {
		t.Fatal("zero TTL should disable expiry")
	}
	if n := st.Evict(base); n != 0 {
		t.Errorf("Evict with zero TTL removed %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { st.Run(ctx); close(done) }()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			st.Put(batch("b-a"), OriginAgent)
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
		go func() {
			defer wg.Done()
			st.Latest()
		}()
	}
	wg.Wait()

	if st.Count() != 1 {
		t.Errorf("Count after concurrent puts: got %d, want 1", st.Count())
	}
}
