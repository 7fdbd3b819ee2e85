package server

import (
	"net/http"

	"github.com/hooksink/hooksink/internal/handlers"
	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/middleware"
)

// NewRouter constructs the service handler chain: request ID, request
// logging, metrics recording, then the route mux.
func NewRouter(h *handlers.Handler, m *metrics.Metrics, logger *logging.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook", h.Webhook)
	mux.HandleFunc("/messages", h.Messages)
	mux.HandleFunc("/stats", h.Stats)

	mux.HandleFunc("/health/live", h.Live)
	mux.HandleFunc("/health/ready", h.Ready)

	// Prometheus text exposition over the injected registry.
	mux.Handle("/metrics", m.Handler())

	return middleware.RequestID(
		middleware.RequestLogger(logger.Logger,
			middleware.Metrics(m, mux)))
}
