// Package api exposes the operational HTTP surface: trigger a collection
// pass, run retention sweeps, read stats, and control the scheduler.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"job-collector/internal/collector"
	"job-collector/internal/config"
	"job-collector/internal/index"
	"job-collector/internal/logger"
	"job-collector/internal/scheduler"
	"job-collector/internal/store"
	"job-collector/internal/telemetry"
)

// Server wires HTTP handlers over the collector, store and scheduler.
type Server struct {
	cfg       config.Config
	store     store.Store
	collector *collector.Collector
	sched     *scheduler.Service
	log       zerolog.Logger
}

// New constructs the API server.
func New(cfg config.Config, st store.Store, col *collector.Collector, sched *scheduler.Service) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		collector: col,
		sched:     sched,
		log:       logger.Get("api"),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/metrics", telemetry.Handler())

	r.Post("/collect", s.handleCollect)
	r.Post("/retention/{task}", s.handleRetention)
	r.Get("/stats", s.handleStats)
	r.Get("/search", s.handleSearch)

	r.Post("/scheduler/start", s.handleSchedulerStart)
	r.Post("/scheduler/stop", s.handleSchedulerStop)
	r.Get("/scheduler/status", s.handleSchedulerStatus)
	return r
}

type collectRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	MaxPages int    `json:"max_pages"`
}

type collectResponse struct {
	Outcome collector.Outcome     `json:"outcome"`
	Ingest  collector.IngestStats `json:"ingest"`
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.MaxPages == 0 {
		req.MaxPages = s.cfg.MaxPages
	}

	outcome, err := s.collector.Collect(r.Context(), req.Query, req.Location, req.MaxPages)
	if err != nil {
		if errors.Is(err, collector.ErrAllSourcesFailed) {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":    err.Error(),
				"failures": outcome.Failures,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ingest := s.collector.Ingest(r.Context(), s.store, outcome)
	writeJSON(w, http.StatusOK, collectResponse{Outcome: outcome, Ingest: ingest})
}

func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	task := chi.URLParam(r, "task")
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	report, err := s.sched.RunManual(r.Context(), task, dryRun)
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownTask) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	telemetry.StoreSizeGauge.Set(float64(stats.Total))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	salaryMin, _ := strconv.ParseFloat(r.URL.Query().Get("salary_min"), 64)
	filters := index.Filters{
		Location:   r.URL.Query().Get("location"),
		JobType:    r.URL.Query().Get("job_type"),
		RemoteType: r.URL.Query().Get("remote_type"),
		SalaryMin:  salaryMin,
	}

	hits, err := s.store.Search(r.Context(), query, n, filters)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (s *Server) handleSchedulerStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.sched.Start(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleSchedulerStop(w http.ResponseWriter, _ *http.Request) {
	s.sched.Stop()
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
