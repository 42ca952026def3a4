package tracking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

// PerformanceTier classifies how latency-sensitive an operation is. Each
// tier carries a default duration target.
type PerformanceTier string

const (
	TierCritical60FPS   PerformanceTier = "critical_60fps"   // frame-budget work, <16ms
	TierHighPerformance PerformanceTier = "high_performance" // interactive, <100ms
	TierStandard        PerformanceTier = "standard"         // request path, <500ms
	TierBackground      PerformanceTier = "background"       // batch work, <5s
)

var tierTargets = map[PerformanceTier]time.Duration{
	TierCritical60FPS:   16 * time.Millisecond,
	TierHighPerformance: 100 * time.Millisecond,
	TierStandard:        500 * time.Millisecond,
	TierBackground:      5 * time.Second,
}

// Operation is one in-flight tracked operation.
type Operation struct {
	ID     string
	Name   string
	Target time.Duration
	start  time.Time
}

// OperationStats summarizes completed operations of one name.
type OperationStats struct {
	Name          string        `json:"name"`
	Total         int           `json:"total"`
	AvgDuration   time.Duration `json:"avg_duration"`
	MinDuration   time.Duration `json:"min_duration"`
	MaxDuration   time.Duration `json:"max_duration"`
	SLAViolations uint64        `json:"sla_violations"`
	SLARate       float64       `json:"sla_rate"`
}

// PerformanceMonitor tracks named operations against per-tier latency
// targets. Completions feed the metrics engine (`<name>_duration` histogram
// and `<name>_sla_violation_total` counter) and SLA violations are logged.
type PerformanceMonitor struct {
	engine *metrics.Engine
	tier   PerformanceTier
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string]*Operation
}

// NewPerformanceMonitor creates a monitor whose operations default to the
// given tier's target.
func NewPerformanceMonitor(engine *metrics.Engine, tier PerformanceTier) *PerformanceMonitor {
	if _, ok := tierTargets[tier]; !ok {
		tier = TierStandard
	}
	return &PerformanceMonitor{
		engine: engine,
		tier:   tier,
		logger: log.With().Str("component", "perfmon").Logger(),
		active: make(map[string]*Operation),
	}
}

// StartOperation begins tracking an operation. An empty id gets a generated
// one; a zero target uses the monitor tier's default. The returned
// operation's ID is the handle for CompleteOperation.
func (m *PerformanceMonitor) StartOperation(id, name string, target time.Duration) *Operation {
	if id == "" {
		id = uuid.NewString()
	}
	if target <= 0 {
		target = tierTargets[m.tier]
	}

	op := &Operation{ID: id, Name: name, Target: target, start: time.Now()}
	m.mu.Lock()
	m.active[id] = op
	m.mu.Unlock()

	m.logger.Debug().Str("operation", name).Str("id", id).Dur("target", target).Msg("Started tracking operation")
	return op
}

// CompleteOperation finishes a tracked operation, records its duration and
// SLA outcome, and returns the elapsed time. Completing an unknown id is
// logged and reports false.
func (m *PerformanceMonitor) CompleteOperation(id string) (time.Duration, bool) {
	m.mu.Lock()
	op, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Warn().Str("id", id).Msg("Attempted to complete unknown operation")
		return 0, false
	}

	elapsed := time.Since(op.start)
	m.engine.RecordSample(op.Name+"_duration", elapsed.Seconds(), nil)
	m.engine.IncrementCounter(op.Name+"_total", 1, nil)

	if elapsed > op.Target {
		m.engine.IncrementCounter(op.Name+"_sla_violation_total", 1, nil)
		m.logger.Warn().
			Str("operation", op.Name).
			Dur("duration", elapsed).
			Dur("target", op.Target).
			Msg("SLA violation")
	}
	return elapsed, true
}

// ActiveCount reports how many operations are currently being tracked.
func (m *PerformanceMonitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Stats summarizes completed operations of one name from the engine's
// current histogram window. It reports false when nothing was recorded.
func (m *PerformanceMonitor) Stats(name string) (OperationStats, bool) {
	summary := m.engine.HistogramSummary(name+"_duration", nil)
	if summary.Count == 0 {
		return OperationStats{}, false
	}

	total := m.engine.CounterValue(name+"_total", nil)
	violations := m.engine.CounterValue(name+"_sla_violation_total", nil)
	slaRate := 1.0
	if total > 0 {
		slaRate = 1 - float64(violations)/float64(total)
	}

	return OperationStats{
		Name:          name,
		Total:         summary.Count,
		AvgDuration:   time.Duration(summary.Avg * float64(time.Second)),
		MinDuration:   time.Duration(summary.Min * float64(time.Second)),
		MaxDuration:   time.Duration(summary.Max * float64(time.Second)),
		SLAViolations: violations,
		SLARate:       slaRate,
	}, true
}
