package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

func TestTracker_RecordLocalization(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	tracker := NewTracker(engine)

	tracker.RecordLocalization(LocalizationResult{
		Success:        true,
		ProcessingTime: 250 * time.Millisecond,
		Confidence:     0.92,
		FeatureMatches: 140,
	})
	tracker.RecordLocalization(LocalizationResult{
		Success:        false,
		ProcessingTime: 800 * time.Millisecond,
		Confidence:     -1,
		FeatureMatches: -1,
	})

	assert.Equal(t, uint64(1), engine.CounterValue("localization_success_total", nil))
	assert.Equal(t, uint64(1), engine.CounterValue("localization_failure_total", nil))

	assert.Equal(t, 2, engine.HistogramSummary("localization_processing_time", nil).Count)
	// Unreported confidence and matches are not recorded
	assert.Equal(t, 1, engine.HistogramSummary("localization_confidence", nil).Count)
	assert.Equal(t, 1, engine.HistogramSummary("localization_feature_matches", nil).Count)

	rate, ok := engine.Gauge("localization_success_rate", nil)
	require.True(t, ok)
	assert.Equal(t, 0.5, rate)

	avg, ok := engine.Gauge("localization_avg_processing_time", nil)
	require.True(t, ok)
	assert.InDelta(t, 0.525, avg, 1e-9)
}

func TestTracker_RecordFeatureExtraction(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	tracker := NewTracker(engine)

	tracker.RecordFeatureExtraction(512, 40*time.Millisecond)
	tracker.RecordFeatureExtraction(480, 35*time.Millisecond)

	assert.Equal(t, uint64(2), engine.CounterValue("feature_extraction_total", nil))
	assert.Equal(t, 2, engine.HistogramSummary("feature_extraction_time", nil).Count)

	counts := engine.HistogramSummary("feature_count", nil)
	assert.Equal(t, 2, counts.Count)
	assert.Equal(t, 512.0, counts.Max)
}

func TestTracker_RecordMapOperation(t *testing.T) {
	engine := metrics.NewEngine(metrics.Config{})
	tracker := NewTracker(engine)

	tracker.RecordMapOperation("load", "m7", 120*time.Millisecond)
	tracker.RecordMapOperation("load", "m7", 90*time.Millisecond)
	tracker.RecordMapOperation("save", "m7", 300*time.Millisecond)

	assert.Equal(t, uint64(2), engine.CounterValue("map_load_total", nil))
	assert.Equal(t, uint64(1), engine.CounterValue("map_save_total", nil))

	load := engine.HistogramSummary("map_load_duration", metrics.Labels{"map_id": "m7"})
	assert.Equal(t, 2, load.Count)
}
