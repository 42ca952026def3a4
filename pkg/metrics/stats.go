package metrics

import (
	"encoding/json"
	"math"
	"sort"
)

// Summary contains the derived statistics for one histogram bucket.
//
// An empty bucket yields only `{"count": 0}`; callers must treat the missing
// fields as "no data", not zero. NonFinite counts NaN and ±Inf samples, which
// contribute to Count but are excluded from every other statistic so the
// exposition text stays parseable.
type Summary struct {
	Count     int     `json:"count"`
	Sum       float64 `json:"sum"`
	Avg       float64 `json:"avg"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	P50       float64 `json:"p50"`
	P90       float64 `json:"p90"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
	NonFinite int     `json:"non_finite,omitempty"`
}

// MarshalJSON emits only the count for an empty bucket so readers cannot
// mistake fabricated zeros for data.
func (s Summary) MarshalJSON() ([]byte, error) {
	if s.Count == 0 {
		return []byte(`{"count":0}`), nil
	}
	type alias Summary
	return json.Marshal(alias(s))
}

// Summarize computes count/sum/avg/min/max and percentiles over a sample
// snapshot. Sorting happens on a local copy of the values, stored order is
// never mutated.
//
// The percentile rule is the one the originating system uses: the p-th
// percentile of n ascending values is the value at index floor(n*p), clamped
// to the last index, with p90/p95/p99 collapsing to the maximum below
// 10/20/100 samples. Small buckets degrade to the max rather than erroring.
func Summarize(samples []Sample) Summary {
	values := make([]float64, 0, len(samples))
	nonFinite := 0
	for _, s := range samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			nonFinite++
			continue
		}
		values = append(values, s.Value)
	}

	out := Summary{Count: len(samples), NonFinite: nonFinite}
	if len(values) == 0 {
		// All-non-finite buckets report their count but no statistics.
		out.Sum = 0
		return out
	}

	sort.Float64s(values)

	n := len(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	out.Sum = sum
	out.Avg = sum / float64(n)
	out.Min = values[0]
	out.Max = values[n-1]
	out.P50 = percentile(values, 0.5)
	if n >= 10 {
		out.P90 = percentile(values, 0.9)
	} else {
		out.P90 = out.Max
	}
	if n >= 20 {
		out.P95 = percentile(values, 0.95)
	} else {
		out.P95 = out.Max
	}
	if n >= 100 {
		out.P99 = percentile(values, 0.99)
	} else {
		out.P99 = out.Max
	}
	return out
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
