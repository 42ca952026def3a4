package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

func TestPerformanceMonitor_CompleteOperation(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	monitor := NewPerformanceMonitor(engine, TierStandard)

	op := monitor.StartOperation("", "relocalize", 0)
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, 500*time.Millisecond, op.Target)
	assert.Equal(t, 1, monitor.ActiveCount())

	elapsed, ok := monitor.CompleteOperation(op.ID)
	require.True(t, ok)
	assert.Greater(t, elapsed, time.Duration(0))
	assert.Equal(t, 0, monitor.ActiveCount())

	assert.Equal(t, 1, engine.HistogramSummary("relocalize_duration", nil).Count)
	assert.Equal(t, uint64(1), engine.CounterValue("relocalize_total", nil))
	// Well within the 500ms target
	assert.Equal(t, uint64(0), engine.CounterValue("relocalize_sla_violation_total", nil))
}

func TestPerformanceMonitor_SLAViolation(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	monitor := NewPerformanceMonitor(engine, TierCritical60FPS)

	op := monitor.StartOperation("frame-1", "render", time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, ok := monitor.CompleteOperation(op.ID)
	require.True(t, ok)

	assert.Equal(t, uint64(1), engine.CounterValue("render_sla_violation_total", nil))
}

func TestPerformanceMonitor_UnknownOperation(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	monitor := NewPerformanceMonitor(engine, TierStandard)

	elapsed, ok := monitor.CompleteOperation("not-tracked")
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), elapsed)
}

func TestPerformanceMonitor_Stats(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	monitor := NewPerformanceMonitor(engine, TierBackground)

	_, ok := monitor.Stats("ingest")
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		op := monitor.StartOperation("", "ingest", time.Hour)
		monitor.CompleteOperation(op.ID)
	}
	op := monitor.StartOperation("", "ingest", time.Nanosecond)
	time.Sleep(time.Millisecond)
	monitor.CompleteOperation(op.ID)

	stats, ok := monitor.Stats("ingest")
	require.True(t, ok)
	assert.Equal(t, "ingest", stats.Name)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, uint64(1), stats.SLAViolations)
	assert.InDelta(t, 0.75, stats.SLARate, 1e-9)
	assert.GreaterOrEqual(t, stats.MaxDuration, stats.MinDuration)
}

func TestPerformanceMonitor_UnknownTierFallsBack(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	monitor := NewPerformanceMonitor(engine, PerformanceTier("bogus"))

	op := monitor.StartOperation("", "x", 0)
	assert.Equal(t, 500*time.Millisecond, op.Target)
	monitor.CompleteOperation(op.ID)
}
