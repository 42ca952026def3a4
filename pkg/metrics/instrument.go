package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/voxar-platform/spatialmetrics"

// TimeOperation runs op and records its duration in seconds as a sample of
// `<name>_processing_time`. A failing op still gets its duration recorded and
// additionally increments `<name>_error_total`; the error is returned to the
// caller unchanged. A span wraps the operation when a tracer provider is
// installed.
//
// The engine is passed explicitly; the wrapper never discovers it from its
// arguments.
func TimeOperation(ctx context.Context, engine *Engine, name string, op func(context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := op(ctx)
	elapsed := time.Since(start)

	engine.RecordSample(name+"_processing_time", elapsed.Seconds(), nil)
	span.SetAttributes(attribute.Float64("duration_seconds", elapsed.Seconds()))

	if err != nil {
		engine.IncrementCounter(name+"_error_total", 1, nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Timer measures one scoped duration, for call sites that cannot wrap their
// work in a closure.
type Timer struct {
	engine *Engine
	name   string
	labels Labels
	start  time.Time
}

// StartTimer begins timing an operation named name.
func StartTimer(engine *Engine, name string, labels Labels) *Timer {
	return &Timer{engine: engine, name: name, labels: labels, start: time.Now()}
}

// ObserveDuration records the elapsed time since StartTimer as a
// `<name>_processing_time` sample and returns the duration.
func (t *Timer) ObserveDuration() time.Duration {
	elapsed := time.Since(t.start)
	t.engine.RecordSample(t.name+"_processing_time", elapsed.Seconds(), t.labels)
	return elapsed
}

// ObserveError records the duration and increments `<name>_error_total` when
// err is non-nil. It returns err unchanged so it can wrap a return statement.
func (t *Timer) ObserveError(err error) error {
	t.ObserveDuration()
	if err != nil {
		t.engine.IncrementCounter(t.name+"_error_total", 1, t.labels)
	}
	return err
}
