package incidentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsseer/internal/alert"
	"github.com/linnemanlabs/opsseer/internal/enrich"
)

type mockService struct {
	enrichID   string
	enrichErr  error
	lastAlert  *alert.Alert
	timeline   []enrich.TimelineEvent
	listErr    error
	pingErr    error
	lastListID string
}

func (m *mockService) Enrich(_ context.Context, al *alert.Alert) (string, error) {
	m.lastAlert = al
	if m.enrichErr != nil {
		return "", m.enrichErr
	}
	if m.enrichID != "" {
		return m.enrichID, nil
	}
	return "inc-1", nil
}

func (m *mockService) Timeline(_ context.Context, incidentID string) ([]enrich.TimelineEvent, error) {
	m.lastListID = incidentID
	return m.timeline, m.listErr
}

func (m *mockService) Ping(context.Context) error { return m.pingErr }

func newTestRouter(t *testing.T, svc *mockService) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	New(nil, svc).RegisterRoutes(r)
	return r
}

// New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, &mockService{})
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_WithLogger(t *testing.T) {
	t.Parallel()

	if api := New(log.Nop(), &mockService{}); api == nil {
		t.Fatal("New(logger, svc) returned nil API")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

// Routing

func TestRegisterRoutes_Webhook(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &mockService{})

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"POST valid webhook", http.MethodPost, `{"alerts":[{"status":"firing","labels":{"alertname":"HighLatency"},"annotations":{"summary":"p95 over SLO"}}]}`, http.StatusOK},
		{"POST empty alerts", http.MethodPost, `{"alerts":[]}`, http.StatusOK},
		{"POST invalid JSON", http.MethodPost, `{bad`, http.StatusBadRequest},
		{"GET not allowed", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"PUT not allowed", http.MethodPut, "", http.StatusMethodNotAllowed},
		{"DELETE not allowed", http.MethodDelete, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/webhook/alert", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s /webhook/alert = %d, want %d", tt.method, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_NotFound(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &mockService{})

	for _, path := range []string{"/", "/webhook", "/timeline", "/timeline/", "/unknown"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		})
	}
}

// Webhook handler

func TestHandleWebhook_ReturnsIncidentID(t *testing.T) {
	t.Parallel()

	svc := &mockService{enrichID: "5f3c0a2e-8a4d-4a8e-9a6f-0c8b1d2e3f40"}
	r := newTestRouter(t, svc)

	body := `{
		"alerts": [{
			"status": "firing",
			"labels": {"alertname": "HighLatency", "severity": "warning"},
			"annotations": {"summary": "p95 latency above SLO"}
		}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}
	if resp["incident_id"] != "5f3c0a2e-8a4d-4a8e-9a6f-0c8b1d2e3f40" {
		t.Errorf("incident_id = %q", resp["incident_id"])
	}

	if svc.lastAlert == nil || svc.lastAlert.Name() != "HighLatency" {
		t.Errorf("service received alert %+v, want HighLatency", svc.lastAlert)
	}
}

func TestHandleWebhook_FirstAlertOnly(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	r := newTestRouter(t, svc)

	body := `{
		"alerts": [
			{"status": "firing", "labels": {"alertname": "First"}, "annotations": {}},
			{"status": "firing", "labels": {"alertname": "Second"}, "annotations": {}}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if svc.lastAlert == nil || svc.lastAlert.Name() != "First" {
		t.Errorf("service received alert %+v, want First", svc.lastAlert)
	}
}

func TestHandleWebhook_EmptyAlertsDegrades(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", strings.NewReader(`{"alerts":[]}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastAlert == nil || svc.lastAlert.Name() != "" {
		t.Errorf("service received alert %+v, want empty alert", svc.lastAlert)
	}
}

func TestHandleWebhook_PersistenceErrorIs500(t *testing.T) {
	t.Parallel()

	svc := &mockService{enrichErr: errors.New("append alert: connection refused")}
	r := newTestRouter(t, svc)

	body := `{"alerts":[{"status":"firing","labels":{"alertname":"HighCPU"},"annotations":{}}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

// Timeline handler

func TestHandleTimeline_ReturnsEvents(t *testing.T) {
	t.Parallel()

	svc := &mockService{timeline: []enrich.TimelineEvent{
		{IncidentID: "inc-7", Type: enrich.EventAlert, Payload: json.RawMessage(`{"name":"HighLatency"}`), EventTS: 1},
		{IncidentID: "inc-7", Type: enrich.EventInsightAnswer, Payload: json.RawMessage(`{"answer":"roll back"}`), EventTS: 2},
	}}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/timeline/inc-7", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastListID != "inc-7" {
		t.Errorf("listed incident = %q, want inc-7", svc.lastListID)
	}

	var events []enrich.TimelineEvent
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != enrich.EventAlert || events[0].EventTS != 1 {
		t.Errorf("first event = %+v", events[0])
	}
}

func TestHandleTimeline_UnknownIncidentIsEmptyArray(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &mockService{})

	req := httptest.NewRequest(http.MethodGet, "/timeline/no-such-incident", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestHandleTimeline_StoreErrorIs500(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &mockService{listErr: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/timeline/inc-1", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

// Healthz

func TestHandleHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		pingErr      error
		wantStatus   int
		wantDatabase string
	}{
		{"connected", nil, http.StatusOK, "connected"},
		{"disconnected", errors.New("dial timeout"), http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRouter(t, &mockService{pingErr: tt.pingErr})
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["database"] != tt.wantDatabase {
				t.Errorf("database = %q, want %q", resp["database"], tt.wantDatabase)
			}
		})
	}
}

// Fuzz

func FuzzWebhook(f *testing.F) {
	r := chi.NewRouter()
	New(nil, &mockService{}).RegisterRoutes(r)

	seeds := []string{
		"",
		"{}",
		`{"alerts":[]}`,
		`{"alerts":[{"status":"firing","labels":{"alertname":"A"},"annotations":{}}]}`,
		"{invalid json",
		"\x00\x01\x02\xff\xfe",
		"<xml>not json</xml>",
		strings.Repeat("a", 10000),
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, body string) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/alert", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		// Must not panic
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK && rec.Code != http.StatusBadRequest {
			t.Errorf("POST /webhook/alert with body len=%d = %d, want 200 or 400", len(body), rec.Code)
		}
	})
}
