package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/followup/pkg/metrics"
)

// HealthHandler serves liveness and metrics.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /healthz requests.
// If the Accept header asks for text/plain or OpenMetrics, it serves the
// Prometheus exposition instead of the JSON status.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if wantsMetrics(r.Header.Get("Accept")) {
		h.MetricsHandler().ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MetricsHandler serves the custom metrics registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

func wantsMetrics(accept string) bool {
	accept = strings.ToLower(accept)
	return strings.Contains(accept, "application/openmetrics-text") || strings.Contains(accept, "text/plain")
}
