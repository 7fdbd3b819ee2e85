package handlers

import (
	"errors"
	"net/http"

	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/service"
)

// Live handles GET /health/live. Unconditional once the process serves;
// it must not depend on the store.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready: 200 only when the store answers a ping
// within the probe timeout and the webhook secret is configured.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", logging.Error(err))

		detail := "not ready"
		switch {
		case errors.Is(err, service.ErrSecretNotConfigured):
			detail = service.ErrSecretNotConfigured.Error()
		case errors.Is(err, service.ErrStoreUnreachable):
			detail = service.ErrStoreUnreachable.Error()
		}
		writeError(w, http.StatusServiceUnavailable, "not_ready", detail)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
