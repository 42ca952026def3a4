// Package tracking provides producer-side helpers that feed the metrics
// engine: localization attempt tracking, feature-extraction tracking, map
// operation tracking and SLA-aware operation timing.
package tracking

import (
	"sync/atomic"
	"time"

	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

// Tracker records localization-pipeline events into a metrics engine and
// maintains the derived success-rate and average-latency gauges.
type Tracker struct {
	engine *metrics.Engine

	successes atomic.Uint64
	failures  atomic.Uint64
}

// NewTracker creates a tracker bound to the given engine.
func NewTracker(engine *metrics.Engine) *Tracker {
	return &Tracker{engine: engine}
}

// LocalizationResult describes one localization attempt.
type LocalizationResult struct {
	Success        bool
	ProcessingTime time.Duration
	// Confidence in [0,1]; negative means not reported.
	Confidence float64
	// FeatureMatches counted during pose estimation; negative means not
	// reported.
	FeatureMatches int
}

// RecordLocalization records a localization attempt: success/failure
// counters, the processing-time histogram, optional confidence and
// feature-match histograms, and the derived success-rate and
// average-processing-time gauges.
func (t *Tracker) RecordLocalization(result LocalizationResult) {
	if result.Success {
		t.engine.IncrementCounter("localization_success_total", 1, nil)
		t.successes.Add(1)
	} else {
		t.engine.IncrementCounter("localization_failure_total", 1, nil)
		t.failures.Add(1)
	}

	t.engine.RecordSample("localization_processing_time", result.ProcessingTime.Seconds(), nil)
	if result.Confidence >= 0 {
		t.engine.RecordSample("localization_confidence", result.Confidence, nil)
	}
	if result.FeatureMatches >= 0 {
		t.engine.RecordSample("localization_feature_matches", float64(result.FeatureMatches), nil)
	}

	t.updateDerivedGauges()
}

// RecordFeatureExtraction records one feature-extraction pass.
func (t *Tracker) RecordFeatureExtraction(featureCount int, extractionTime time.Duration) {
	t.engine.IncrementCounter("feature_extraction_total", 1, nil)
	t.engine.RecordSample("feature_extraction_time", extractionTime.Seconds(), nil)
	t.engine.RecordSample("feature_count", float64(featureCount), nil)
}

// RecordMapOperation records a map-scoped operation (load, save, merge, ...)
// keyed by operation with the map identifier as a sample label.
func (t *Tracker) RecordMapOperation(operation, mapID string, duration time.Duration) {
	t.engine.IncrementCounter("map_"+operation+"_total", 1, nil)
	t.engine.RecordSample("map_"+operation+"_duration", duration.Seconds(), metrics.Labels{"map_id": mapID})
}

func (t *Tracker) updateDerivedGauges() {
	successes := t.successes.Load()
	failures := t.failures.Load()
	total := successes + failures
	if total == 0 {
		return
	}
	t.engine.SetGauge("localization_success_rate", float64(successes)/float64(total), nil)

	if avg := t.engine.HistogramSummary("localization_processing_time", nil); avg.Count > 0 {
		t.engine.SetGauge("localization_avg_processing_time", avg.Avg, nil)
	}
}
