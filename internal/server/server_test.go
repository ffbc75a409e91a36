package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/storage/memory"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSummarizer struct {
	summary *narrative.Summary
	err     error
}

func (f *fakeSummarizer) FinancialSummary(context.Context, string, *kpi.Snapshot) (*narrative.Summary, error) {
	return f.summary, f.err
}

type fixture struct {
	server    *Server
	hub       *Hub
	txns      *memory.TransactionStore
	forecasts *memory.ForecastStore
}

func setup(t *testing.T, summarizer Summarizer) *fixture {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	f := &fixture{
		hub:       NewHub(logger),
		txns:      memory.NewTransactionStore(),
		forecasts: memory.NewForecastStore(),
	}
	t.Cleanup(f.hub.Close)

	now := func() time.Time { return fixedNow }
	f.server = New(Options{
		KPIEngine: kpi.NewEngine(kpi.EngineOptions{
			TransactionStore: f.txns,
			MetricStore:      memory.NewMetricStore(),
			Logger:           logger,
			Now:              now,
		}),
		ForecastStore: f.forecasts,
		Summarizer:    summarizer,
		Hub:           f.hub,
		Logger:        logger,
		Now:           now,
	})
	return f
}

func get(t *testing.T, handler http.Handler, path, tenantID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := setup(t, nil)

	rec := get(t, f.server.Handler(), "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("Unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestKPIs(t *testing.T) {
	f := setup(t, nil)
	err := f.txns.Insert(context.Background(), &domain.Transaction{
		ID:       "txn1",
		TenantID: "t1",
		Date:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.NewFromInt(5000),
		Category: domain.CategoryRevenue,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec := get(t, f.server.Handler(), "/api/v1/analytics/kpis?days=30", "t1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body["total_revenue"] != "5000" {
		t.Errorf("Unexpected total_revenue %v", body["total_revenue"])
	}
	if body["tenant_id"] != "t1" {
		t.Errorf("Unexpected tenant_id %v", body["tenant_id"])
	}
}

func TestKPIs_MissingTenantHeader(t *testing.T) {
	f := setup(t, nil)

	rec := get(t, f.server.Handler(), "/api/v1/analytics/kpis", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestKPIs_InvalidDays(t *testing.T) {
	f := setup(t, nil)

	rec := get(t, f.server.Handler(), "/api/v1/analytics/kpis?days=soon", "t1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestForecast(t *testing.T) {
	f := setup(t, nil)
	accuracy := 0.88
	err := f.forecasts.Insert(context.Background(), &domain.Forecast{
		ID:            "f1",
		TenantID:      "t1",
		Metric:        domain.MetricRevenue,
		HorizonDays:   90,
		Series:        map[string]float64{"2026-03-02": 1100},
		ModelType:     domain.ModelTypeAdditive,
		AccuracyScore: &accuracy,
		CreatedAt:     fixedNow,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec := get(t, f.server.Handler(), "/api/v1/analytics/forecast/revenue", "t1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body forecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.Metric != domain.MetricRevenue || body.HorizonDays != 90 {
		t.Errorf("Unexpected forecast %+v", body)
	}
	if body.AccuracyScore == nil || *body.AccuracyScore != 0.88 {
		t.Errorf("Unexpected accuracy %v", body.AccuracyScore)
	}
}

func TestForecast_NotFound(t *testing.T) {
	f := setup(t, nil)

	rec := get(t, f.server.Handler(), "/api/v1/analytics/forecast/revenue", "t1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestForecast_UnknownMetric(t *testing.T) {
	f := setup(t, nil)

	rec := get(t, f.server.Handler(), "/api/v1/analytics/forecast/stonks", "t1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	f := setup(t, &fakeSummarizer{summary: &narrative.Summary{Summary: "Stable."}})

	rec := get(t, f.server.Handler(), "/api/v1/analytics/summary", "t1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Stable.") {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestSummary_QuotaExceeded(t *testing.T) {
	f := setup(t, &fakeSummarizer{err: &narrative.QuotaExceededError{TenantID: "t1", Limit: 5}})

	rec := get(t, f.server.Handler(), "/api/v1/analytics/summary", "t1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rec.Code)
	}
}

func TestSummary_NotConfigured(t *testing.T) {
	f := setup(t, nil)

	rec := get(t, f.server.Handler(), "/api/v1/analytics/summary", "t1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	f := setup(t, nil)
	f.server.NotePipelineRun()
	f.server.NoteSyncRun()
	f.server.NoteSyncRun()

	rec := get(t, f.server.Handler(), "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.SyncRuns != 2 || body.PipelineRuns != 1 || body.ReportRuns != 0 {
		t.Errorf("Unexpected counters %+v", body)
	}
	if !body.LastPipelineRun.Equal(fixedNow) {
		t.Errorf("Unexpected last pipeline run %s", body.LastPipelineRun)
	}
}

func TestWSEvents(t *testing.T) {
	f := setup(t, nil)

	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// The server registers the client just after the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for f.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.hub.Broadcast(Event{Type: EventAlert, TenantID: "t1", At: fixedNow})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if event.Type != EventAlert || event.TenantID != "t1" {
		t.Errorf("Unexpected event %+v", event)
	}
}
