package metrics

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// ErrInvalidDelta is returned when a counter increment carries a negative
// delta. The increment is dropped, the counter never decreases.
var ErrInvalidDelta = fmt.Errorf("counter delta must not be negative")

// counterEntry is one counter series. The value is atomic so concurrent
// increments on the same series never take the store lock.
type counterEntry struct {
	value atomic.Uint64
}

// add applies a saturating increment.
func (c *counterEntry) add(delta uint64) {
	for {
		cur := c.value.Load()
		next := cur + delta
		if next < cur {
			next = math.MaxUint64
		}
		if c.value.CompareAndSwap(cur, next) {
			return
		}
	}
}

// counterStore holds all counter series keyed by canonical series key.
// The RWMutex only guards the map; increments on existing series are
// lock-free.
type counterStore struct {
	mu      sync.RWMutex
	entries map[string]*counterEntry
}

func newCounterStore() *counterStore {
	return &counterStore{entries: make(map[string]*counterEntry)}
}

func (s *counterStore) entry(name string, labels Labels) *counterEntry {
	key := seriesKey(name, labels)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &counterEntry{}
	s.entries[key] = e
	return e
}

func (s *counterStore) get(name string, labels Labels) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[seriesKey(name, labels)]; ok {
		return e.value.Load()
	}
	return 0
}

// snapshot returns the current value of every counter series.
func (s *counterStore) snapshot() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]uint64, len(s.entries))
	for key, e := range s.entries {
		out[key] = e.value.Load()
	}
	return out
}

func (s *counterStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*counterEntry)
}
