// Package incidentapi exposes the webhook receiver and timeline query
// endpoints over HTTP.
package incidentapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/opsseer/internal/alert"
	"github.com/linnemanlabs/opsseer/internal/enrich"
)

// EnrichService defines the business operations incidentapi needs.
type EnrichService interface {
	Enrich(ctx context.Context, al *alert.Alert) (string, error)
	Timeline(ctx context.Context, incidentID string) ([]enrich.TimelineEvent, error)
	Ping(ctx context.Context) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    EnrichService
}

// New creates a new API handler.
func New(logger log.Logger, svc EnrichService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("enrich service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/alert", a.handleWebhook)
	r.Get("/timeline/{incident_id}", a.handleTimeline)
	r.Get("/healthz", a.handleHealthz)
}

// handleWebhook runs the enrichment workflow synchronously for the first
// alert in the payload and responds with the incident id once the workflow
// completes. Capability failures never surface here; only an unparseable
// body or a storage failure changes the status code.
func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var wh alert.Webhook
	if err := json.NewDecoder(r.Body).Decode(&wh); err != nil {
		http.Error(w, `{"error":"invalid JSON payload"}`, http.StatusBadRequest)
		return
	}

	// A payload without alerts is still structurally valid; the workflow
	// runs with empty fields rather than rejecting it.
	al := &alert.Alert{}
	if len(wh.Alerts) > 0 {
		al = &wh.Alerts[0]
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("opsseer.alert.name", al.Name()))

	incidentID, err := a.svc.Enrich(r.Context(), al)
	if err != nil {
		a.logger.Error(r.Context(), err, "enrichment failed", "alert", al.Name())
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("opsseer.incident.id", incidentID))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":      "ok",
		"incident_id": incidentID,
	})
}

func (a *API) handleTimeline(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "incident_id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("opsseer.incident.id", incidentID))

	events, err := a.svc.Timeline(r.Context(), incidentID)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list timeline", "incident_id", incidentID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []enrich.TimelineEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status, database := "ok", "connected"
	code := http.StatusOK
	if err := a.svc.Ping(r.Context()); err != nil {
		status, database = "error", "disconnected"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":   status,
		"database": database,
	})
}
