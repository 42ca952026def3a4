package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// retentionLoop periodically evicts histogram samples older than the
// engine's retention window. It holds each bucket for only as long as the
// trim takes, so a sweep in progress never stalls inserts into other
// buckets.
type retentionLoop struct {
	engine *Engine
	logger zerolog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func newRetentionLoop(e *Engine) *retentionLoop {
	return &retentionLoop{
		engine: e,
		logger: log.With().Str("component", "metrics").Logger(),
	}
}

func (r *retentionLoop) start(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.run(interval, r.stopCh, r.doneCh)
	r.logger.Debug().Dur("interval", interval).Msg("Retention loop started")
}

// stop is idempotent; it waits for an in-flight sweep to finish.
func (r *retentionLoop) stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
	r.logger.Debug().Msg("Retention loop stopped")
}

func (r *retentionLoop) run(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

// sweep trims every bucket against now − window. The bucket list is
// snapshotted up front so the store lock is released before any trimming
// starts.
func (r *retentionLoop) sweep(now time.Time) {
	cutoff := now.Add(-r.engine.config.RetentionWindow)
	removed := 0
	for _, b := range r.engine.histograms.all() {
		removed += b.trimBefore(cutoff)
	}
	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Time("cutoff", cutoff).Msg("Swept stale samples")
	}
}
