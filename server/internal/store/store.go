package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/netpulse/netpulse/pkg/types"
)

// Batch origins.
const (
	OriginAgent = "agent"
	OriginAPI   = "api"
)

// Entry is a batch together with where it came from and when it arrived.
type Entry struct {
	Batch      *types.Batch
	Origin     string
	ReceivedAt time.Time

	seq uint64
}

// Store is a thread-safe in-memory batch store, keyed by batch ID.
// A background goroutine (Run) periodically evicts entries older than the
// configured TTL. A zero TTL disables expiry.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	seq  uint64
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the configured retention.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the batch under b.ID and returns the new entry.
// Callers must not modify b after calling Put.
func (s *Store) Put(b *types.Batch, origin string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e := &Entry{
		Batch:      b,
		Origin:     origin,
		ReceivedAt: s.now(),
		seq:        s.seq,
	}
	s.data[b.ID] = e
	return e
}

// Get returns the live entry for id. Stale entries that have not yet been
// evicted are reported as missing.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok || !s.live(e, s.now()) {
		return nil, false
	}
	return e, true
}

// List returns all live entries, newest first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Entry) int {
		// seq is strictly increasing, so it orders by arrival.
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})
	return out
}

// Latest returns the most recently stored live entry.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var latest *Entry
	for _, e := range s.data {
		if s.live(e, now) && (latest == nil || e.seq > latest.seq) {
			latest = e
		}
	}
	return latest, latest != nil
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose ReceivedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *Store) live(e *Entry, now time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	return e.ReceivedAt.After(now.Add(-s.ttl))
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale batches", "count", n)
			}
		}
	}
}
