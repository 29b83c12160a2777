package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/identity"
	"bilancio/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Transactions.List(r.Context(), ownerFrom(r))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewResponse().JSON(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	d, err := DecodeDraft(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	created, err := s.deps.Transactions.Create(r.Context(), ownerFrom(r), d)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/expenses/"+created.ID).
		JSON(created).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	d, err := DecodeDraft(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	updated, err := s.deps.Transactions.Update(r.Context(), ownerFrom(r), r.PathValue("id"), d)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), ownerFrom(r), r.PathValue("id")); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := ParseSummaryQuery(r.URL.Query(), s.now())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	view, err := s.deps.Summaries.Month(r.Context(), ownerFrom(r), q)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(view).Write(w)
}

// handleSession hands out a fresh session id. Nothing is stored server side;
// clients keep the id and send it back on every request.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"sessionId": identity.NewSessionID()}).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Store == nil {
		checks["store"] = "ok"
	} else if err := s.deps.Store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			"check", "store", log.FieldError, err.Error())
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.deps.SummaryCache != nil {
		checks["summary_cache"] = map[string]any{
			"entries": s.deps.SummaryCache.Stats().Size,
			"status":  "ok",
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics exposes counters in the Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}

	w.WriteHeader(http.StatusOK)
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_microseconds_avg", "gauge", "Mean request duration", traceMetrics.AverageResponseTime)
	metric("rate_limited_requests_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Limited)
	metric("rate_limiter_clients", "gauge", "Clients tracked by the rate limiter", limitMetrics.ClientCount)
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.startedAt).Seconds()))

	if s.deps.SummaryCache != nil {
		stats := s.deps.SummaryCache.Stats()
		metric("summary_cache_hits_total", "counter", "Summary cache hits", stats.Hits)
		metric("summary_cache_misses_total", "counter", "Summary cache misses", stats.Misses)
		metric("summary_cache_entries", "gauge", "Owners with a cached transaction list", int64(stats.Size))
	}
}
