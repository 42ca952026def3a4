package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetention_SweepEvictsOldSamples(t *testing.T) {
	engine := NewEngine(Config{RetentionWindow: time.Hour})
	now := time.Now()

	require.NoError(t, engine.RecordSampleAt("op", 1.0, now.Add(-3*time.Hour), nil))
	require.NoError(t, engine.RecordSampleAt("op", 2.0, now.Add(-2*time.Hour), nil))
	require.NoError(t, engine.RecordSampleAt("op", 3.0, now.Add(-10*time.Minute), nil))
	require.NoError(t, engine.RecordSampleAt("op", 4.0, now, nil))

	engine.Sweep()

	samples := engine.histograms.bucket("op", nil).snapshot()
	require.Len(t, samples, 2)
	assert.Equal(t, 3.0, samples[0].Value)
	assert.Equal(t, 4.0, samples[1].Value)

	// No retained sample is older than now - window
	cutoff := time.Now().Add(-time.Hour)
	for _, s := range samples {
		assert.False(t, s.Timestamp.Before(cutoff))
	}
}

func TestRetention_SweepSparesAllBuckets(t *testing.T) {
	engine := NewEngine(Config{RetentionWindow: time.Hour})
	now := time.Now()

	engine.RecordSampleAt("stale", 1.0, now.Add(-2*time.Hour), nil)
	engine.RecordSampleAt("fresh", 1.0, now, nil)

	engine.Sweep()

	assert.Equal(t, 0, engine.histograms.bucket("stale", nil).len())
	assert.Equal(t, 1, engine.histograms.bucket("fresh", nil).len())
}

func TestRetention_EmptiedBucketIsKept(t *testing.T) {
	engine := NewEngine(Config{RetentionWindow: time.Hour})
	engine.RecordSampleAt("op", 1.0, time.Now().Add(-2*time.Hour), nil)

	engine.Sweep()

	// The bucket stays registered and reports no data
	snap := engine.Snapshot()
	summary, ok := snap.Histograms["op"]
	require.True(t, ok)
	assert.Equal(t, 0, summary.Count)
}

func TestRetention_LoopStartStop(t *testing.T) {
	engine := NewEngine(Config{RetentionWindow: time.Hour})

	engine.StartRetentionLoop(10 * time.Millisecond)
	// Starting twice is a no-op
	engine.StartRetentionLoop(10 * time.Millisecond)

	engine.RecordSampleAt("op", 1.0, time.Now().Add(-2*time.Hour), nil)

	assert.Eventually(t, func() bool {
		return engine.histograms.bucket("op", nil).len() == 0
	}, time.Second, 5*time.Millisecond)

	engine.StopRetentionLoop()
	// Stop is idempotent
	engine.StopRetentionLoop()
}

func TestRetention_StopWithoutStart(t *testing.T) {
	engine := NewEngine(Config{})
	assert.NotPanics(t, func() {
		engine.StopRetentionLoop()
	})
}

func TestRetention_RestartAfterStop(t *testing.T) {
	engine := NewEngine(Config{RetentionWindow: time.Hour})

	engine.StartRetentionLoop(10 * time.Millisecond)
	engine.StopRetentionLoop()

	engine.RecordSampleAt("op", 1.0, time.Now().Add(-2*time.Hour), nil)
	engine.StartRetentionLoop(10 * time.Millisecond)
	defer engine.StopRetentionLoop()

	assert.Eventually(t, func() bool {
		return engine.histograms.bucket("op", nil).len() == 0
	}, time.Second, 5*time.Millisecond)
}
