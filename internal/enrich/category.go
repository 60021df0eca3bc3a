package enrich

// Category groups alerts by the enrichment stages they receive beyond the
// base answering stage.
type Category string

const (
	// CategoryGeneral gets base enrichment only.
	CategoryGeneral Category = "general"

	// CategoryHighLatency additionally gets the dashboard-vision and
	// forecast stages.
	CategoryHighLatency Category = "high_latency"
)

// highLatencyAlerts is the fixed set of alert names classified as
// high-latency class.
var highLatencyAlerts = map[string]struct{}{
	"HighLatency":        {},
	"HighP95Latency":     {},
	"HighRequestLatency": {},
}

// Classify maps an alert name to its category. Unknown names are general.
func Classify(alertName string) Category {
	if _, ok := highLatencyAlerts[alertName]; ok {
		return CategoryHighLatency
	}
	return CategoryGeneral
}
