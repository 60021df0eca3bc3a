package enrich

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the enrichment subsystem.
type Metrics struct {
	IncidentsTotal     *prometheus.CounterVec
	EnrichmentDuration *prometheus.HistogramVec
	StageTotal         *prometheus.CounterVec
	CapabilityTotal    *prometheus.CounterVec
	CapabilityDuration *prometheus.HistogramVec
	NotifyTotal        *prometheus.CounterVec
	WarningsTotal      prometheus.Counter
}

// NewMetrics registers and returns enrichment metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IncidentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsseer_incidents_total",
			Help: "Total incidents created by alert category.",
		}, []string{"category"}),
		EnrichmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsseer_enrichment_duration_seconds",
			Help:    "Duration of full enrichment workflows in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"category"}),
		StageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsseer_stage_total",
			Help: "Total enrichment stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		CapabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsseer_capability_total",
			Help: "Total capability calls by capability and outcome.",
		}, []string{"capability", "outcome"}),
		CapabilityDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsseer_capability_duration_seconds",
			Help:    "Duration of individual capability calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"capability"}),
		NotifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsseer_notify_total",
			Help: "Total notification attempts by sink and outcome.",
		}, []string{"sink", "outcome"}),
		WarningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opsseer_proactive_warnings_total",
			Help: "Total proactive SLO-breach warnings emitted.",
		}),
	}

	reg.MustRegister(
		m.IncidentsTotal,
		m.EnrichmentDuration,
		m.StageTotal,
		m.CapabilityTotal,
		m.CapabilityDuration,
		m.NotifyTotal,
		m.WarningsTotal,
	)

	return m
}

// NotifyObserver returns a callback for notification sinks to report
// per-sink outcomes.
func (m *Metrics) NotifyObserver() func(sink string, err error) {
	return func(sink string, err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		m.NotifyTotal.WithLabelValues(sink, outcome).Inc()
	}
}
