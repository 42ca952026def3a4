package metrics

import (
	"sync"
	"time"
)

// Sample is a single histogram observation. Immutable once stored.
type Sample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Labels    Labels    `json:"labels,omitempty"`
}

// histogramBucket is the bounded, time-ordered sample buffer backing one
// series. Samples live in a fixed-capacity ring: appending at capacity
// overwrites the oldest sample, so an insert is O(1) no matter how many
// samples were ever recorded.
type histogramBucket struct {
	mu    sync.Mutex
	ring  []Sample
	start int // index of the oldest sample
	count int
}

func newHistogramBucket(cap int) *histogramBucket {
	return &histogramBucket{ring: make([]Sample, cap)}
}

// append stores a sample, evicting the single oldest one when the bucket is
// at capacity. Strict FIFO: eviction order is arrival order, not timestamp
// order.
func (b *histogramBucket) append(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < len(b.ring) {
		b.ring[(b.start+b.count)%len(b.ring)] = s
		b.count++
		return
	}
	b.ring[b.start] = s
	b.start = (b.start + 1) % len(b.ring)
}

// trimBefore drops samples older than the cutoff. A sample exactly at the
// cutoff is retained. Arrival order is assumed non-decreasing in timestamp;
// the scan stops at the first sample inside the window, so a late sample
// behind a fresh one is kept rather than corrupting the ring.
func (b *histogramBucket) trimBefore(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for b.count > 0 && b.ring[b.start].Timestamp.Before(cutoff) {
		b.ring[b.start] = Sample{}
		b.start = (b.start + 1) % len(b.ring)
		b.count--
		removed++
	}
	return removed
}

// snapshot copies the current samples in arrival order. The copy is what the
// statistics engine works on; readers never observe the ring mutate
// mid-computation.
func (b *histogramBucket) snapshot() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Sample, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(b.start+i)%len(b.ring)]
	}
	return out
}

func (b *histogramBucket) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// histogramStore holds all histogram buckets keyed by canonical series key.
// Each bucket has its own mutex, so contention on one series never stalls
// inserts into another.
type histogramStore struct {
	mu        sync.RWMutex
	buckets   map[string]*histogramBucket
	sampleCap int
}

func newHistogramStore(sampleCap int) *histogramStore {
	return &histogramStore{
		buckets:   make(map[string]*histogramBucket),
		sampleCap: sampleCap,
	}
}

func (s *histogramStore) bucket(name string, labels Labels) *histogramBucket {
	key := seriesKey(name, labels)

	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[key]; ok {
		return b
	}
	b = newHistogramBucket(s.sampleCap)
	s.buckets[key] = b
	return b
}

// all returns the current bucket list. The retention sweep iterates this
// snapshot so it never holds the store lock while trimming.
func (s *histogramStore) all() map[string]*histogramBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*histogramBucket, len(s.buckets))
	for key, b := range s.buckets {
		out[key] = b
	}
	return out
}

func (s *histogramStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*histogramBucket)
}
