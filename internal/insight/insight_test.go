package insight

import (
	"strings"
	"testing"
)

func TestExtractMetric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantValue float64
		wantOK    bool
	}{
		{"plain reading", "p95 latency 842.5 ms over threshold", 842.5, true},
		{"no whitespace", "current: 120ms", 120, true},
		{"integer value", "latency 95 ms", 95, true},
		{"first occurrence wins", "spiked to 300 ms then 900 ms", 300, true},
		{"no numbers", "no numbers here", 0, false},
		{"number without unit", "error rate 0.53", 0, false},
		{"unit mid-word", "5 msgs queued", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := ExtractMetric(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractMetric(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Name != LatencyMetric {
				t.Errorf("Name = %q, want %q", m.Name, LatencyMetric)
			}
			if m.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", m.Value, tt.wantValue)
			}
			if m.Unit != "ms" {
				t.Errorf("Unit = %q, want %q", m.Unit, "ms")
			}
		})
	}
}

func TestFirstBreach(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		series    []float64
		threshold float64
		wantIdx   int
		wantOK    bool
	}{
		{"breach mid-series", []float64{0.10, 0.20, 0.35, 0.40}, 0.30, 2, true},
		{"no breach", []float64{0.1, 0.2}, 0.30, 0, false},
		{"equal is not a breach", []float64{0.30, 0.30}, 0.30, 0, false},
		{"first crossing only", []float64{0.5, 0.1, 0.6}, 0.30, 0, true},
		{"empty series", nil, 0.30, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx, ok := FirstBreach(tt.series, tt.threshold)
			if ok != tt.wantOK {
				t.Fatalf("FirstBreach ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && idx != tt.wantIdx {
				t.Errorf("index = %d, want %d", idx, tt.wantIdx)
			}
		})
	}
}

func TestBreachMessage_OneBasedSteps(t *testing.T) {
	t.Parallel()

	msg := BreachMessage(LatencyMetric, 0.30, 2)
	if !strings.Contains(msg, "approximately 3 minute(s)") {
		t.Errorf("message = %q, want it to report 3 minute(s)", msg)
	}
	if !strings.Contains(msg, "0.30s") {
		t.Errorf("message = %q, want it to state the SLO threshold", msg)
	}
}
