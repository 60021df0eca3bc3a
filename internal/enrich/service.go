package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linnemanlabs/opsseer/internal/alert"
	"github.com/linnemanlabs/opsseer/internal/gateway"
	"github.com/linnemanlabs/opsseer/internal/insight"
)

var tracer = otel.Tracer("github.com/linnemanlabs/opsseer/internal/enrich")

const (
	// latencySLOThreshold is the fixed p95 latency ceiling in seconds used
	// by the threshold-breach detector.
	latencySLOThreshold = 0.30

	historyWindow   = 30 * time.Minute
	historyStep     = time.Minute
	forecastHorizon = 12

	latencyHistoryQuery = `histogram_quantile(0.95, sum by (le) (rate(toyprod_request_latency_seconds_bucket[5m])))`
)

// CapabilityRouter invokes named AI backends with a bounded per-call timeout.
type CapabilityRouter interface {
	Answer(ctx context.Context, query string) (*gateway.Answer, error)
	ExtractText(ctx context.Context, image []byte) (string, error)
	Forecast(ctx context.Context, history []float64, predictionLength int) ([][]float64, error)
}

// Snapshotter captures a dashboard panel image.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// MetricHistory queries historical metric data for the forecast stage.
type MetricHistory interface {
	History(ctx context.Context, query string, window, step time.Duration) ([]float64, error)
}

// Notification is the summarized insight handed to notification sinks.
type Notification struct {
	IncidentID string
	Alert      *alert.Alert
	Answer     *AnswerInsight
	Warning    string
}

// Notifier fans a notification out to its sinks. Implementations never
// return an error; sink failures are logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, n *Notification)
}

// Deps bundles everything a Service needs, constructed once at startup.
// Snapshots, History, and Notifier are optional; absent dependencies degrade
// the corresponding stages.
type Deps struct {
	Store     Store
	Router    CapabilityRouter
	Snapshots Snapshotter
	History   MetricHistory
	Notifier  Notifier
	Logger    log.Logger
	Metrics   *Metrics
}

// Service orchestrates the enrichment workflow for inbound alerts.
type Service struct {
	store     Store
	router    CapabilityRouter
	snapshots Snapshotter
	history   MetricHistory
	notifier  Notifier
	logger    log.Logger
	metrics   *Metrics

	stages map[Category][]stage
}

// stage is one conditional enrichment step. Stages degrade individually and
// never halt the workflow.
type stage struct {
	name string
	run  func(ctx context.Context, r *run)
}

// run carries per-incident workflow state shared between stages.
type run struct {
	incidentID string
	al         *alert.Alert

	mu        sync.Mutex
	warning   string
	appendErr error
}

func (r *run) setWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warning = msg
}

func (r *run) recordAppendErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr == nil {
		r.appendErr = err
	}
}

// NewService creates the enrichment service. Each category registers its own
// stage sequence; adding a category means adding an entry here, not string
// comparisons in the workflow.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = log.Nop()
	}
	s := &Service{
		store:     d.Store,
		router:    d.Router,
		snapshots: d.Snapshots,
		history:   d.History,
		notifier:  d.Notifier,
		logger:    d.Logger,
		metrics:   d.Metrics,
	}
	s.stages = map[Category][]stage{
		CategoryGeneral: nil,
		CategoryHighLatency: {
			{name: "vision", run: s.visionStage},
			{name: "forecast", run: s.forecastStage},
		},
	}
	return s
}

// Enrich runs the full workflow for one alert: creates an incident, appends
// the alert event, executes the base answering stage, runs the category's
// conditional stages in parallel, and notifies. It returns the incident id.
// Only persistence failures surface as errors; every capability failure is
// recorded on the timeline instead.
func (s *Service) Enrich(ctx context.Context, al *alert.Alert) (string, error) {
	inc := Incident{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	category := Classify(al.Name())

	ctx, span := tracer.Start(ctx, "enrich.workflow")
	span.SetAttributes(
		attribute.String("opsseer.incident.id", inc.ID),
		attribute.String("opsseer.alert.name", al.Name()),
		attribute.String("opsseer.alert.category", string(category)),
	)
	defer span.End()

	L := s.logger.With("incident_id", inc.ID, "alert", al.Name(), "category", string(category))
	start := time.Now()

	s.metrics.IncidentsTotal.WithLabelValues(string(category)).Inc()
	defer func() {
		s.metrics.EnrichmentDuration.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
	}()

	// The alert record is always the first timeline event.
	rec := AlertRecord{Name: al.Name(), Labels: al.Labels, Annotations: al.Annotations}
	if err := s.append(ctx, inc.ID, EventAlert, rec); err != nil {
		L.Error(ctx, err, "failed to record alert event")
		return "", err
	}

	r := &run{incidentID: inc.ID, al: al}

	// Base enrichment runs unconditionally and never halts the workflow.
	answer := s.answerStage(ctx, r)

	// Conditional stages are data-independent; run them concurrently and
	// join before notifying.
	stages := s.stages[category]
	if len(stages) > 0 {
		var wg sync.WaitGroup
		for _, st := range stages {
			wg.Add(1)
			go func(st stage) {
				defer wg.Done()
				st.run(ctx, r)
			}(st)
		}
		wg.Wait()
	}

	if err := r.appendErr; err != nil {
		L.Error(ctx, err, "failed to record enrichment event")
		return "", err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, &Notification{
			IncidentID: inc.ID,
			Alert:      al,
			Answer:     answer,
			Warning:    r.warning,
		})
	}

	L.Info(ctx, "enrichment complete",
		"duration", time.Since(start).Seconds(),
		"warning", r.warning != "",
	)
	return inc.ID, nil
}

// Timeline returns the ordered event history for an incident.
func (s *Service) Timeline(ctx context.Context, incidentID string) ([]TimelineEvent, error) {
	return s.store.List(ctx, incidentID)
}

// Ping reports storage connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// answerStage asks the answering capability for the alert's runbook. Returns
// the insight for the notifier, or nil when the call failed.
func (s *Service) answerStage(ctx context.Context, r *run) *AnswerInsight {
	ctx, span := tracer.Start(ctx, "stage.answer")
	defer span.End()

	question := fmt.Sprintf("What is the runbook for the %s alert?", r.al.Name())

	ans, err := observeCapability(s, gateway.CapabilityAnswering, func() (*gateway.Answer, error) {
		return s.router.Answer(ctx, question)
	})
	if err != nil {
		s.recordStage(ctx, r, "answer", err)
		return nil
	}

	ai := &AnswerInsight{Answer: ans.Answer, Score: ans.Score, Source: ans.Source}
	if err := s.append(ctx, r.incidentID, EventInsightAnswer, ai); err != nil {
		r.recordAppendErr(err)
		return ai
	}
	s.metrics.StageTotal.WithLabelValues("answer", "success").Inc()
	return ai
}

// visionStage captures a dashboard snapshot, OCRs it, and parses the text
// for a latency reading. Missing renderer, capture failure, and OCR failure
// all degrade to an error event; unparseable text degrades to raw text.
func (s *Service) visionStage(ctx context.Context, r *run) {
	ctx, span := tracer.Start(ctx, "stage.vision")
	defer span.End()

	if s.snapshots == nil {
		s.recordStage(ctx, r, "vision", errors.New("no snapshot renderer configured"))
		return
	}

	img, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		s.recordStage(ctx, r, "vision", fmt.Errorf("snapshot: %w", err))
		return
	}

	text, err := observeCapability(s, gateway.CapabilityVision, func() (string, error) {
		return s.router.ExtractText(ctx, img)
	})
	if err != nil {
		s.recordStage(ctx, r, "vision", err)
		return
	}

	vi := VisionInsight{RawText: text}
	if m, ok := insight.ExtractMetric(text); ok {
		vi.Metric = m
	}
	if err := s.append(ctx, r.incidentID, EventInsightVision, vi); err != nil {
		r.recordAppendErr(err)
		return
	}
	s.metrics.StageTotal.WithLabelValues("vision", "success").Inc()
}

// forecastStage queries the latency history, forecasts it, and derives a
// proactive warning when the first sample path crosses the SLO threshold.
func (s *Service) forecastStage(ctx context.Context, r *run) {
	ctx, span := tracer.Start(ctx, "stage.forecast")
	defer span.End()

	if s.history == nil {
		s.recordStage(ctx, r, "forecast", errors.New("no metric history configured"))
		return
	}

	series, err := s.history.History(ctx, latencyHistoryQuery, historyWindow, historyStep)
	if err != nil {
		s.recordStage(ctx, r, "forecast", fmt.Errorf("metric history: %w", err))
		return
	}

	paths, err := observeCapability(s, gateway.CapabilityForecasting, func() ([][]float64, error) {
		return s.router.Forecast(ctx, series, forecastHorizon)
	})
	if err != nil {
		s.recordStage(ctx, r, "forecast", err)
		return
	}
	if len(paths) == 0 || len(paths[0]) == 0 {
		s.recordStage(ctx, r, "forecast", errors.New("forecast returned no sample paths"))
		return
	}

	forecast := paths[0]
	fi := ForecastInsight{Series: forecast, Horizon: len(forecast)}
	if err := s.append(ctx, r.incidentID, EventInsightForecast, fi); err != nil {
		r.recordAppendErr(err)
		return
	}
	s.metrics.StageTotal.WithLabelValues("forecast", "success").Inc()

	idx, breached := insight.FirstBreach(forecast, latencySLOThreshold)
	if !breached {
		return
	}

	pw := ProactiveWarning{
		Metric:      insight.LatencyMetric,
		Threshold:   latencySLOThreshold,
		BreachIndex: idx,
		Message:     insight.BreachMessage(insight.LatencyMetric, latencySLOThreshold, idx),
	}
	if err := s.append(ctx, r.incidentID, EventProactiveWarning, pw); err != nil {
		r.recordAppendErr(err)
		return
	}
	s.metrics.WarningsTotal.Inc()
	r.setWarning(pw.Message)
}

// recordStage appends an insight_error event for a failed stage. Transport
// errors contribute their upstream status.
func (s *Service) recordStage(ctx context.Context, r *run, name string, stageErr error) {
	s.metrics.StageTotal.WithLabelValues(name, "error").Inc()
	s.logger.Warn(ctx, "enrichment stage degraded",
		"incident_id", r.incidentID,
		"stage", name,
		"error", stageErr.Error(),
	)

	ei := ErrorInsight{Reason: stageErr.Error()}
	var te *gateway.TransportError
	if errors.As(stageErr, &te) {
		ei.UpstreamStatus = te.Status
	}
	if err := s.append(ctx, r.incidentID, EventInsightError, ei); err != nil {
		r.recordAppendErr(err)
	}
}

// observeCapability wraps a router call with duration and outcome metrics.
func observeCapability[T any](s *Service, capability string, call func() (T, error)) (T, error) {
	start := time.Now()
	out, err := call()
	s.metrics.CapabilityDuration.WithLabelValues(capability).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.CapabilityTotal.WithLabelValues(capability, outcome).Inc()
	return out, err
}

func (s *Service) append(ctx context.Context, incidentID string, typ EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	if _, err := s.store.Append(ctx, incidentID, typ, body); err != nil {
		return fmt.Errorf("append %s: %w", typ, err)
	}
	return nil
}
