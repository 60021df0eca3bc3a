// Package insight contains the pure parsers that turn raw capability output
// into structured metrics: numeric extraction from OCR text and SLO breach
// detection over a forecast horizon.
package insight

import (
	"fmt"
	"regexp"
	"strconv"
)

// LatencyMetric is the metric name attached to values extracted from
// dashboard snapshots.
const LatencyMetric = "p95_latency"

// msValueRe matches the first decimal number immediately followed by a
// millisecond unit token, e.g. "842.5 ms" or "120ms".
var msValueRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ms\b`)

// Metric is a numeric reading recovered from free-form OCR text.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ExtractMetric scans text for the first millisecond value. It returns the
// parsed metric and true on a match, or nil and false when the text contains
// no recognizable reading.
func ExtractMetric(text string) (*Metric, bool) {
	m := msValueRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	return &Metric{Name: LatencyMetric, Value: v, Unit: "ms"}, true
}

// FirstBreach returns the 0-based index of the first forecast value that
// exceeds threshold, and true if any value does. Later crossings are ignored.
func FirstBreach(series []float64, threshold float64) (int, bool) {
	for i, v := range series {
		if v > threshold {
			return i, true
		}
	}
	return 0, false
}

// BreachMessage renders the human-readable proactive warning for a breach at
// the given 0-based index. The index is surfaced as a 1-based step count in
// the series' step unit (minutes).
func BreachMessage(metric string, threshold float64, index int) string {
	return fmt.Sprintf("Forecast projects %s will exceed the %.2fs SLO in approximately %d minute(s).",
		metric, threshold, index+1)
}
