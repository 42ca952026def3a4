package metrics

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// ErrNonFiniteValue is returned when a gauge set carries NaN or ±Inf. The
// write is dropped so snapshots always stay JSON-serializable.
var ErrNonFiniteValue = fmt.Errorf("gauge value must be finite")

// gaugeEntry is one gauge series. The value is stored as atomic float bits so
// concurrent writers resolve to some total order without holding the store
// lock (last write wins).
type gaugeEntry struct {
	bits atomic.Uint64
}

func (g *gaugeEntry) set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

func (g *gaugeEntry) get() float64 {
	return math.Float64frombits(g.bits.Load())
}

// gaugeStore holds all gauge series keyed by canonical series key.
type gaugeStore struct {
	mu      sync.RWMutex
	entries map[string]*gaugeEntry
}

func newGaugeStore() *gaugeStore {
	return &gaugeStore{entries: make(map[string]*gaugeEntry)}
}

func (s *gaugeStore) set(name string, value float64, labels Labels) {
	key := seriesKey(name, labels)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if e, ok = s.entries[key]; !ok {
			e = &gaugeEntry{}
			s.entries[key] = e
		}
		s.mu.Unlock()
	}
	e.set(value)
}

// get reports the gauge's value. The second return value is false when the
// gauge has never been set; callers must not read the first value in that
// case.
func (s *gaugeStore) get(name string, labels Labels) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[seriesKey(name, labels)]; ok {
		return e.get(), true
	}
	return 0, false
}

func (s *gaugeStore) snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.entries))
	for key, e := range s.entries {
		out[key] = e.get()
	}
	return out
}

func (s *gaugeStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*gaugeEntry)
}
