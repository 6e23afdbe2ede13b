package server

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Catsarenotevil/AntonSlayer/auditlog"
	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/pipeline"
	"github.com/Catsarenotevil/AntonSlayer/telemetry"
)

// maxIngestBody caps GSI payload size. Real payloads are a few KB.
const maxIngestBody = 1 << 20

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db        *sql.DB
	proc      *pipeline.Processor
	audit     *auditlog.Log
	startedAt time.Time
}

// NewHandlers creates the handler set. db and audit may be nil in tests.
func NewHandlers(dbx *sql.DB, proc *pipeline.Processor, audit *auditlog.Log) *Handlers {
	return &Handlers{db: dbx, proc: proc, audit: audit, startedAt: time.Now()}
}

// HandleIngest accepts a GSI snapshot. Replies "ok" for any valid JSON body and
// "bad json" with a 400 otherwise; the game ignores the response either way.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := h.proc.HandleRaw(r.Context(), body); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Debug("rejected ingest payload")
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed system checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.db == nil {
				return sql.ErrConnDone
			}
			return h.db.PingContext(r.Context())
		}},
		{"schema", func() error {
			if h.db == nil {
				return sql.ErrConnDone
			}
			var n int
			return h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM matches`).Scan(&n)
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus reports pipeline state, history counts, and job heartbeats.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"pipeline":       h.proc.Status(),
	}
	if h.db != nil {
		if n, err := db.CountMatches(r.Context(), h.db); err == nil {
			out["matches_recorded"] = n
		}
		if hb, err := db.GetKV(r.Context(), h.db, "job_leetify_poll_last"); err == nil && hb != "" {
			out["leetify_last_poll"] = hb
		}
	}
	if h.audit != nil {
		if n, err := h.audit.Count(); err == nil {
			out["audit_lines"] = n
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
