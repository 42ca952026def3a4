package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SnapshotReply is the structured view of the engine's full state. Map keys
// are canonical series keys (`name` or `name{label="value",...}`).
type SnapshotReply struct {
	Timestamp     time.Time          `json:"timestamp"`
	WindowSeconds float64            `json:"window_seconds"`
	Counters      map[string]uint64  `json:"counters"`
	Gauges        map[string]float64 `json:"gauges"`
	Histograms    map[string]Summary `json:"histograms"`
}

// Snapshot assembles the current counters, gauges and per-bucket histogram
// statistics. Each metric is read tear-free; cross-metric consistency at a
// single instant is not promised.
func (e *Engine) Snapshot() SnapshotReply {
	histograms := make(map[string]Summary)
	for key, b := range e.histograms.all() {
		histograms[key] = Summarize(b.snapshot())
	}
	return SnapshotReply{
		Timestamp:     time.Now().UTC(),
		WindowSeconds: e.config.RetentionWindow.Seconds(),
		Counters:      e.counters.snapshot(),
		Gauges:        e.gauges.snapshot(),
		Histograms:    histograms,
	}
}

// RenderPrometheus renders the full state as Prometheus exposition text,
// suitable to serve verbatim with content type ContentType.
func (e *Engine) RenderPrometheus() []byte {
	var out strings.Builder

	counters := e.counters.snapshot()
	lastName := ""
	for _, key := range sortedKeys(counters) {
		name, labelStr := splitKey(key)
		// One # TYPE line per metric name; labeled series of the same name
		// sort together right behind the bare series.
		if name != lastName {
			fmt.Fprintf(&out, "# TYPE %s_%s counter\n", e.config.Namespace, name)
			lastName = name
		}
		fmt.Fprintf(&out, "%s_%s%s %d\n", e.config.Namespace, name, labelStr, counters[key])
	}

	gauges := e.gauges.snapshot()
	lastName = ""
	for _, key := range sortedKeys(gauges) {
		name, labelStr := splitKey(key)
		if name != lastName {
			fmt.Fprintf(&out, "# TYPE %s_%s gauge\n", e.config.Namespace, name)
			lastName = name
		}
		fmt.Fprintf(&out, "%s_%s%s %g\n", e.config.Namespace, name, labelStr, gauges[key])
	}

	buckets := e.histograms.all()
	lastName = ""
	for _, key := range sortedKeys(buckets) {
		name, _ := splitKey(key)
		e.renderHistogram(&out, key, buckets[key], name != lastName)
		lastName = name
	}

	return []byte(out.String())
}

// ContentType is the content type for the exposition text.
const ContentType = "text/plain; version=0.0.4"

func (e *Engine) renderHistogram(out *strings.Builder, key string, b *histogramBucket, typeLine bool) {
	name, labelStr := splitKey(key)
	samples := b.snapshot()
	summary := Summarize(samples)

	full := fmt.Sprintf("%s_%s_histogram", e.config.Namespace, name)
	if typeLine {
		fmt.Fprintf(out, "# TYPE %s histogram\n", full)
	}
	fmt.Fprintf(out, "%s_count%s %d\n", full, labelStr, summary.Count)
	fmt.Fprintf(out, "%s_sum%s %g\n", full, labelStr, summary.Sum)

	// Cumulative counts across the ascending ladder; NaN/Inf samples fail
	// every finite threshold and surface only in +Inf, which must equal the
	// bucket's total sample count.
	for _, threshold := range e.config.ExpositionBuckets {
		cum := 0
		for _, s := range samples {
			if !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) && s.Value <= threshold {
				cum++
			}
		}
		fmt.Fprintf(out, "%s_bucket%s %d\n", full,
			mergeLE(labelStr, strconv.FormatFloat(threshold, 'g', -1, 64)), cum)
	}
	fmt.Fprintf(out, "%s_bucket%s %d\n", full, mergeLE(labelStr, "+Inf"), summary.Count)
}

// splitKey separates a canonical series key into the metric name and the
// braced label portion ("" when unlabeled).
func splitKey(key string) (name, labelStr string) {
	if i := strings.IndexByte(key, '{'); i >= 0 {
		return key[:i], key[i:]
	}
	return key, ""
}

// mergeLE appends the `le` label to an existing braced label string.
func mergeLE(labelStr, le string) string {
	if labelStr == "" {
		return fmt.Sprintf("{le=%q}", le)
	}
	return fmt.Sprintf("%s,le=%q}", strings.TrimSuffix(labelStr, "}"), le)
}

// sortedKeys orders series keys by metric name first, then label string, so
// every series of one name is contiguous regardless of how '{' compares to
// characters in longer names.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, li := splitKey(keys[i])
		nj, lj := splitKey(keys[j])
		if ni != nj {
			return ni < nj
		}
		return li < lj
	})
	return keys
}
