package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// Labels represents the label set attached to a metric series
type Labels map[string]string

// Reserved label names used internally by the exposition format. Ingestion
// calls that try to set them are rejected.
var reservedLabels = map[string]bool{
	"le":       true,
	"quantile": true,
}

// ErrReservedLabel is returned when an ingestion call uses a label name the
// exposition format reserves for itself.
var ErrReservedLabel = fmt.Errorf("label name is reserved")

// validateLabels rejects reserved and empty label names. The engine drops the
// observation when validation fails, it never coerces the label set.
func validateLabels(labels Labels) error {
	for name := range labels {
		if name == "" {
			return fmt.Errorf("empty label name: %w", ErrReservedLabel)
		}
		if reservedLabels[name] {
			return fmt.Errorf("label %q: %w", name, ErrReservedLabel)
		}
	}
	return nil
}

// seriesKey builds the canonical identity for a (name, labels) pair. Label
// pairs are sorted before joining so that two label maps built in different
// insertion orders produce the same key.
func seriesKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	return name + "{" + formatLabels(labels) + "}"
}

// formatLabels renders a label set as sorted key="value" pairs, the form used
// both for series identity and for the exposition text.
func formatLabels(labels Labels) string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// cloneLabels copies a label set so stored samples never alias caller maps.
func cloneLabels(labels Labels) Labels {
	if len(labels) == 0 {
		return nil
	}
	out := make(Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
