package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"revdash/internal/log"
	"revdash/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports ready once a snapshot has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.sync.Status()
	body := map[string]any{
		"status":     "ready",
		"connection": status.State,
		"records":    status.Records,
	}
	if _, err := s.sync.Snapshot(); err != nil {
		body["status"] = "not_ready"
		body["reason"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	status := s.sync.Status()

	connected := 0
	if status.Connected {
		connected = 1
	}

	metrics := []struct {
		name, help, kind string
		value            any
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"dashboard_cache_hits_total", "Dashboard cache hits", "counter", atomic.LoadInt64(&s.metrics.cacheHits)},
		{"dashboard_cache_misses_total", "Dashboard cache misses", "counter", atomic.LoadInt64(&s.metrics.cacheMisses)},
		{"dashboard_cache_entries", "Current dashboard cache entries", "gauge", s.dashboardCache.Size()},
		{"manual_refreshes_total", "Refreshes requested over HTTP", "counter", atomic.LoadInt64(&s.metrics.refreshes)},
		{"exports_total", "CSV and XLSX exports served", "counter", atomic.LoadInt64(&s.metrics.exports)},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", limitMetrics.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limitMetrics.ClientCount},
		{"notifications_dropped_total", "Notifications not published because the queue was full", "counter", s.notifications.Dropped()},
		{"suspicious_requests_total", "Suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
		{"source_connected", "1 when connected to the record source", "gauge", connected},
		{"snapshot_records", "Records in the current snapshot", "gauge", status.Records},
		{"snapshot_generation", "Committed refreshes since start", "counter", status.Generation},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.metrics.startedAt).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	if err := s.sync.Connect(ctx); err != nil {
		if errors.Is(err, services.ErrConnectAborted) {
			writeError(w, http.StatusConflict, "connect_aborted", err.Error())
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Connect request failed", log.FieldError, err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  ErrorDetail{Code: "connect_failed", Message: err.Error()},
			"status": s.sync.Status(),
		})
		return
	}
	writeJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	if err := s.sync.Disconnect(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "disconnect_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()
	atomic.AddInt64(&s.metrics.refreshes, 1)

	_, err := s.sync.Refresh(ctx)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.sync.Status())
	case errors.Is(err, services.ErrNotConnected):
		writeError(w, http.StatusConflict, "not_connected", err.Error())
	case errors.Is(err, services.ErrRefreshSuperseded):
		writeError(w, http.StatusConflict, "superseded", err.Error())
	default:
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  ErrorDetail{Code: "refresh_failed", Message: err.Error()},
			"status": s.sync.Status(),
		})
	}
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list := s.notifications.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"count":         len(list),
	})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.notifications.Dismiss(id) {
		writeError(w, http.StatusNotFound, "not_found", "notification not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
