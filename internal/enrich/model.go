package enrich

import (
	"encoding/json"
	"time"

	"github.com/linnemanlabs/opsseer/internal/insight"
)

// EventType enumerates the fixed set of timeline event kinds.
type EventType string

const (
	// EventAlert carries the alert record and is always the first event of
	// an incident.
	EventAlert EventType = "alert"

	// EventInsightAnswer is a successful answering-capability result.
	EventInsightAnswer EventType = "insight_answer"

	// EventInsightVision is the OCR result of a dashboard snapshot.
	EventInsightVision EventType = "insight_vision"

	// EventInsightForecast is a forecast over the metric look-back window.
	EventInsightForecast EventType = "insight_forecast"

	// EventInsightError records a failed enrichment stage.
	EventInsightError EventType = "insight_error"

	// EventProactiveWarning records a projected SLO breach.
	EventProactiveWarning EventType = "proactive_warning"
)

// Incident is one alert-triggered enrichment workflow instance. Created
// exactly once per inbound payload, immutable thereafter.
type Incident struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineEvent is one append-only record in an incident's ordered history.
// EventTS is assigned by the store and strictly increases per incident.
type TimelineEvent struct {
	IncidentID string          `json:"incident_id"`
	Type       EventType       `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EventTS    int64           `json:"event_ts"`
}

// AlertRecord is the portion of the inbound alert persisted as the alert
// event payload.
type AlertRecord struct {
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// AnswerInsight is the answering capability's result.
type AnswerInsight struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// VisionInsight is the OCR text of a dashboard snapshot, with the parsed
// metric when the text contained a recognizable reading.
type VisionInsight struct {
	RawText string          `json:"raw_text"`
	Metric  *insight.Metric `json:"parsed_metric,omitempty"`
}

// ForecastInsight is the first predicted sample path for the look-back series.
type ForecastInsight struct {
	Series  []float64 `json:"series"`
	Horizon int       `json:"horizon"`
}

// ErrorInsight records why an enrichment stage failed. UpstreamStatus is set
// when the capability responded with a non-2xx status.
type ErrorInsight struct {
	Reason         string `json:"reason"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// ProactiveWarning is a derived alert that a latency SLO will be breached
// before it actually is. BreachIndex is 0-based; Message reports the 1-based
// step count.
type ProactiveWarning struct {
	Metric      string  `json:"metric"`
	Threshold   float64 `json:"threshold"`
	BreachIndex int     `json:"breach_index"`
	Message     string  `json:"message"`
}
