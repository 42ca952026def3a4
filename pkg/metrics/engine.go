package metrics

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the engine's tunables. Zero values fall back to the defaults
// below.
type Config struct {
	// Namespace is prefixed to every metric name in the exposition text.
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	// RetentionWindow is the maximum sample age before the periodic sweep
	// evicts it.
	RetentionWindow time.Duration `json:"retention_window" yaml:"retention_window" mapstructure:"retention_window"`
	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`
	// SampleCap bounds every histogram bucket; inserting past it evicts the
	// oldest sample.
	SampleCap int `json:"sample_cap" yaml:"sample_cap" mapstructure:"sample_cap"`
	// ExpositionBuckets is the ascending `le` threshold ladder used when
	// rendering histograms as Prometheus text. +Inf is always appended.
	ExpositionBuckets []float64 `json:"exposition_buckets" yaml:"exposition_buckets" mapstructure:"exposition_buckets"`
}

// DefaultConfig returns the engine defaults: a 24h window swept hourly,
// 1000 samples per bucket and the standard exposition ladder.
func DefaultConfig() Config {
	return Config{
		Namespace:         "vps",
		RetentionWindow:   24 * time.Hour,
		SweepInterval:     time.Hour,
		SampleCap:         1000,
		ExpositionBuckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
	}
}

// Engine is the in-process metrics aggregation engine. It accumulates
// counters, gauges and bounded histogram sample buffers from many concurrent
// producers and summarizes them on demand for occasional readers.
//
// Construct one Engine at process start and pass it explicitly to producers
// and reader endpoints; there is no package-level singleton.
type Engine struct {
	config     Config
	counters   *counterStore
	gauges     *gaugeStore
	histograms *histogramStore
	retention  *retentionLoop
	logger     zerolog.Logger
}

// NewEngine creates an engine with the given configuration. The retention
// loop is not started; call StartRetentionLoop.
func NewEngine(config Config) *Engine {
	defaults := DefaultConfig()
	if config.Namespace == "" {
		config.Namespace = defaults.Namespace
	}
	if config.RetentionWindow <= 0 {
		config.RetentionWindow = defaults.RetentionWindow
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.SampleCap <= 0 {
		config.SampleCap = defaults.SampleCap
	}
	if len(config.ExpositionBuckets) == 0 {
		config.ExpositionBuckets = defaults.ExpositionBuckets
	}

	e := &Engine{
		config:     config,
		counters:   newCounterStore(),
		gauges:     newGaugeStore(),
		histograms: newHistogramStore(config.SampleCap),
		logger:     log.With().Str("component", "metrics").Logger(),
	}
	e.retention = newRetentionLoop(e)

	e.logger.Debug().
		Dur("retention_window", config.RetentionWindow).
		Dur("sweep_interval", config.SweepInterval).
		Int("sample_cap", config.SampleCap).
		Msg("Metrics engine initialized")
	return e
}

// SetLogger replaces the engine's logger. Useful for tests and for daemons
// that build their own root logger.
func (e *Engine) SetLogger(logger zerolog.Logger) {
	e.logger = logger
	e.retention.logger = logger
}

// IncrementCounter adds delta to the counter series identified by name and
// labels, creating it at zero on first use. Negative deltas are rejected and
// logged; the counter never decreases.
func (e *Engine) IncrementCounter(name string, delta int64, labels Labels) error {
	if err := validateLabels(labels); err != nil {
		e.logger.Warn().Err(err).Str("metric", name).Msg("Counter increment dropped")
		return err
	}
	if delta < 0 {
		e.logger.Warn().Str("metric", name).Int64("delta", delta).Msg("Negative counter delta rejected")
		return ErrInvalidDelta
	}
	// A zero delta still registers the series so it exports at zero.
	c := e.counters.entry(name, labels)
	if delta > 0 {
		c.add(uint64(delta))
	}
	return nil
}

// CounterValue reports the current value of a counter series, zero if it was
// never incremented.
func (e *Engine) CounterValue(name string, labels Labels) uint64 {
	return e.counters.get(name, labels)
}

// SetGauge stores the most recent value for the gauge series. Last write
// wins under concurrent writers. NaN and ±Inf are rejected so the snapshot
// stays JSON-serializable.
func (e *Engine) SetGauge(name string, value float64, labels Labels) error {
	if err := validateLabels(labels); err != nil {
		e.logger.Warn().Err(err).Str("metric", name).Msg("Gauge set dropped")
		return err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		e.logger.Warn().Str("metric", name).Float64("value", value).Msg("Non-finite gauge value rejected")
		return ErrNonFiniteValue
	}
	e.gauges.set(name, value, labels)
	return nil
}

// Gauge reports a gauge's value; the second return value is false when the
// gauge was never set.
func (e *Engine) Gauge(name string, labels Labels) (float64, bool) {
	return e.gauges.get(name, labels)
}

// RecordSample appends an observation to the histogram bucket keyed by
// (name, labels), stamped with the current time.
func (e *Engine) RecordSample(name string, value float64, labels Labels) error {
	return e.RecordSampleAt(name, value, time.Now(), labels)
}

// RecordSampleAt is RecordSample with an explicit timestamp. Timestamps are
// expected to arrive in non-decreasing order; a late sample is still stored.
func (e *Engine) RecordSampleAt(name string, value float64, ts time.Time, labels Labels) error {
	if err := validateLabels(labels); err != nil {
		e.logger.Warn().Err(err).Str("metric", name).Msg("Histogram sample dropped")
		return err
	}
	e.histograms.bucket(name, labels).append(Sample{
		Value:     value,
		Timestamp: ts,
		Labels:    cloneLabels(labels),
	})
	return nil
}

// HistogramSummary computes the statistics for one histogram series from a
// point-in-time snapshot of its bucket.
func (e *Engine) HistogramSummary(name string, labels Labels) Summary {
	return Summarize(e.histograms.bucket(name, labels).snapshot())
}

// StartRetentionLoop starts the background sweep at the given interval
// (engine default when zero). Starting an already running loop is a no-op.
func (e *Engine) StartRetentionLoop(interval time.Duration) {
	if interval <= 0 {
		interval = e.config.SweepInterval
	}
	e.retention.start(interval)
}

// StopRetentionLoop stops the background sweep. Safe to call twice and safe
// to call on an engine that never started the loop.
func (e *Engine) StopRetentionLoop() {
	e.retention.stop()
}

// Sweep trims samples older than the retention window from every histogram
// bucket, immediately rather than on the loop's schedule.
func (e *Engine) Sweep() {
	e.retention.sweep(time.Now())
}

// Reset clears all counters, gauges and histogram buckets. Intended for test
// isolation only; the retention loop keeps running.
func (e *Engine) Reset() {
	e.counters.reset()
	e.gauges.reset()
	e.histograms.reset()
	e.logger.Info().Msg("Metrics reset")
}
