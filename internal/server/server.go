// Package server exposes the analytics HTTP API, the dashboard event
// stream, and operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// tenantHeader carries the caller's tenant id. Request authentication
// happens upstream; this service trusts the header.
const tenantHeader = "X-Tenant-ID"

// Summarizer produces LLM commentary for the summary endpoint.
type Summarizer interface {
	FinancialSummary(ctx context.Context, tenantID string, snapshot *kpi.Snapshot) (*narrative.Summary, error)
}

// Server handles the analytics API.
type Server struct {
	kpis       *kpi.Engine
	forecasts  storage.ForecastStore
	summarizer Summarizer
	hub        *Hub
	periodDays int
	logger     *log.Logger
	now        func() time.Time

	mu              sync.Mutex
	startedAt       time.Time
	syncRuns        int
	pipelineRuns    int
	reportRuns      int
	lastSyncRun     time.Time
	lastPipelineRun time.Time
	lastReportRun   time.Time
}

// Options contains configuration for creating a Server.
type Options struct {
	KPIEngine     *kpi.Engine
	ForecastStore storage.ForecastStore
	Summarizer    Summarizer // optional; summary endpoint 503s without it
	Hub           *Hub       // optional; /ws/events 404s without it
	PeriodDays    int        // KPI lookback, default: 90
	Logger        *log.Logger
	Now           func() time.Time
}

// New creates an API server.
func New(opts Options) *Server {
	periodDays := opts.PeriodDays
	if periodDays == 0 {
		periodDays = 90
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Server{
		kpis:       opts.KPIEngine,
		forecasts:  opts.ForecastStore,
		summarizer: opts.Summarizer,
		hub:        opts.Hub,
		periodDays: periodDays,
		logger:     logger,
		now:        now,
		startedAt:  now(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("GET /api/v1/analytics/kpis", s.handleKPIs)
	mux.HandleFunc("GET /api/v1/analytics/forecast/{metric}", s.handleForecast)
	mux.HandleFunc("GET /api/v1/analytics/summary", s.handleSummary)

	if s.hub != nil {
		mux.HandleFunc("GET /ws/events", s.hub.ServeWS)
	}

	return mux
}

// NoteSyncRun records a completed sync scheduler pass for /status.
func (s *Server) NoteSyncRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncRuns++
	s.lastSyncRun = s.now()
}

// NotePipelineRun records a completed pipeline scheduler pass.
func (s *Server) NotePipelineRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelineRuns++
	s.lastPipelineRun = s.now()
}

// NoteReportRun records a completed report scheduler pass.
func (s *Server) NoteReportRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportRuns++
	s.lastReportRun = s.now()
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	SyncRuns        int       `json:"sync_runs"`
	PipelineRuns    int       `json:"pipeline_runs"`
	ReportRuns      int       `json:"report_runs"`
	LastSyncRun     time.Time `json:"last_sync_run,omitempty"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	LastReportRun   time.Time `json:"last_report_run,omitempty"`
	WSClients       int       `json:"ws_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          s.now().Sub(s.startedAt).String(),
		SyncRuns:        s.syncRuns,
		PipelineRuns:    s.pipelineRuns,
		ReportRuns:      s.reportRuns,
		LastSyncRun:     s.lastSyncRun,
		LastPipelineRun: s.lastPipelineRun,
		LastReportRun:   s.lastReportRun,
	}
	s.mu.Unlock()

	if s.hub != nil {
		resp.WSClients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.tenantID(w, r)
	if !ok {
		return
	}

	days := s.periodDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	end := s.now()
	start := domain.Midnight(end).AddDate(0, 0, -days)

	snapshot, err := s.kpis.ComputeAll(r.Context(), tenantID, start, end)
	if err != nil {
		s.logger.Printf("[server] kpis for %s: %v", tenantID, err)
		writeError(w, http.StatusInternalServerError, "failed to compute kpis")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// forecastResponse is the wire shape for a stored forecast.
type forecastResponse struct {
	ID            string                               `json:"id"`
	TenantID      string                               `json:"tenant_id"`
	Metric        string                               `json:"metric"`
	HorizonDays   int                                  `json:"horizon_days"`
	Series        map[string]float64                   `json:"series"`
	Intervals     map[string]domain.ConfidenceInterval `json:"intervals"`
	ModelType     string                               `json:"model_type"`
	ModelParams   map[string]string                    `json:"model_params"`
	AccuracyScore *float64                             `json:"accuracy_score"`
	CreatedAt     time.Time                            `json:"created_at"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.tenantID(w, r)
	if !ok {
		return
	}

	metric := r.PathValue("metric")
	if !forecastable(metric) {
		writeError(w, http.StatusBadRequest, "unknown metric: "+metric)
		return
	}

	forecast, err := s.forecasts.GetLatestByMetric(r.Context(), tenantID, metric)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no forecast for metric "+metric)
			return
		}
		s.logger.Printf("[server] forecast %s for %s: %v", metric, tenantID, err)
		writeError(w, http.StatusInternalServerError, "failed to load forecast")
		return
	}

	writeJSON(w, http.StatusOK, forecastResponse{
		ID:            forecast.ID,
		TenantID:      forecast.TenantID,
		Metric:        forecast.Metric,
		HorizonDays:   forecast.HorizonDays,
		Series:        forecast.Series,
		Intervals:     forecast.Intervals,
		ModelType:     forecast.ModelType,
		ModelParams:   forecast.ModelParams,
		AccuracyScore: forecast.AccuracyScore,
		CreatedAt:     forecast.CreatedAt,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.tenantID(w, r)
	if !ok {
		return
	}
	if s.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, "ai summaries are not configured")
		return
	}

	end := s.now()
	start := domain.Midnight(end).AddDate(0, 0, -s.periodDays)

	snapshot, err := s.kpis.ComputeAll(r.Context(), tenantID, start, end)
	if err != nil {
		s.logger.Printf("[server] summary kpis for %s: %v", tenantID, err)
		writeError(w, http.StatusInternalServerError, "failed to compute kpis")
		return
	}

	summary, err := s.summarizer.FinancialSummary(r.Context(), tenantID, snapshot)
	if err != nil {
		var quotaErr *narrative.QuotaExceededError
		if errors.As(err, &quotaErr) {
			writeError(w, http.StatusTooManyRequests, quotaErr.Error())
			return
		}
		s.logger.Printf("[server] summary for %s: %v", tenantID, err)
		writeError(w, http.StatusBadGateway, "failed to generate summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.Header.Get(tenantHeader)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing "+tenantHeader+" header")
		return "", false
	}
	return tenantID, true
}

func forecastable(metric string) bool {
	for _, m := range domain.ForecastableMetrics {
		if m == metric {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
