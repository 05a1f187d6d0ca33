package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reportflow/internal/config"
	"reportflow/internal/events"
	"reportflow/internal/ingest"
	"reportflow/internal/metrics"
	"reportflow/internal/queue"
	"reportflow/internal/reconcile"
	"reportflow/internal/report"
	"reportflow/internal/store"
)

// maxUploadBytes bounds a single report upload.
const maxUploadBytes = 32 << 20

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg      config.Config
	store    *store.Store
	ingestor *ingest.Service
	engine   *reconcile.Engine
	bus      *events.Bus
	queue    *queue.Queue
}

func NewRouter(cfg config.Config, st *store.Store, ing *ingest.Service, eng *reconcile.Engine, bus *events.Bus, q *queue.Queue) *Router {
	return &Router{cfg: cfg, store: st, ingestor: ing, engine: eng, bus: bus, queue: q}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/reports", r.ingest)
	mux.HandleFunc("/api/checklist", r.checklist)
	mux.HandleFunc("/api/kpis", r.kpis)
	mux.HandleFunc("/ops/reconcile", r.reconcile)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/events", r.events)
	mux.HandleFunc("/ops/health", r.health)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
}

func (r *Router) ingest(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	source := req.FormValue("source")
	if source != store.SourceAutomated {
		source = store.SourceUpload
	}

	rec, err := r.ingestor.Ingest(req.Context(), data, header.Filename, source)
	if err != nil {
		respondIngestError(w, err)
		return
	}
	outcome, err := r.engine.Reconcile(req.Context(), rec.ReportDate, []int64{rec.ID})
	if err != nil {
		// The record is stored; only the reconciliation pass failed.
		respondJSONStatus(w, http.StatusInternalServerError, map[string]any{
			"record_id": rec.ID,
			"error":     "reconcile_error",
			"detail":    err.Error(),
		})
		return
	}
	respondJSON(w, map[string]any{
		"record_id":   rec.ID,
		"report_type": rec.Type,
		"report_date": rec.ReportDate,
		"row_count":   rec.RowCount,
		"reconcile":   outcome,
	})
}

func respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnrecognizedReport):
		respondJSONStatus(w, http.StatusBadRequest, map[string]any{"error": "unrecognized_report_type", "detail": err.Error()})
	case errors.Is(err, ingest.ErrParse):
		respondJSONStatus(w, http.StatusUnprocessableEntity, map[string]any{"error": "parse_error", "detail": err.Error()})
	default:
		respondJSONStatus(w, http.StatusInternalServerError, map[string]any{"error": "store_error", "detail": err.Error()})
	}
}

func (r *Router) checklist(w http.ResponseWriter, req *http.Request) {
	date, ok := dateParam(w, req)
	if !ok {
		return
	}
	checklist, err := r.engine.Checklist(req.Context(), date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, checklist)
}

func (r *Router) kpis(w http.ResponseWriter, req *http.Request) {
	date, ok := dateParam(w, req)
	if !ok {
		return
	}
	ctx := req.Context()
	daily, err := r.store.KPIsForDate(ctx, date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if daily == nil {
		http.NotFound(w, req)
		return
	}
	agents, _ := r.store.AgentPerformanceForDate(ctx, date)
	skills, _ := r.store.SkillSummaryForDate(ctx, date)
	anomalies, _ := r.store.AnomaliesForDate(ctx, date)
	respondJSON(w, map[string]any{
		"daily":     daily,
		"agents":    agents,
		"skills":    skills,
		"anomalies": anomalies,
	})
}

func (r *Router) reconcile(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !validDate(body.Date) {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	outcome, err := r.engine.Reconcile(req.Context(), body.Date, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, outcome)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	recent, _ := r.store.RecentReports(req.Context(), 20)
	resp := map[string]any{"recent_reports": recent}
	if r.queue != nil {
		resp["queue"] = r.queue.Stats()
	}
	respondJSON(w, resp)
}

func (r *Router) events(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.bus.Recent())
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func dateParam(w http.ResponseWriter, req *http.Request) (string, bool) {
	date := req.URL.Query().Get("date")
	if !validDate(date) {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return "", false
	}
	return date, true
}

func validDate(date string) bool {
	_, err := time.Parse(report.DateLayout, date)
	return err == nil
}

func respondJSON(w http.ResponseWriter, payload any) {
	respondJSONStatus(w, http.StatusOK, payload)
}

func respondJSONStatus(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
