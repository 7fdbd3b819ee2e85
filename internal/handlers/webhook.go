package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/models"
	"github.com/hooksink/hooksink/internal/repository"
	"github.com/hooksink/hooksink/internal/service"
)

const signatureHeader = "X-Signature"

// Webhook handles POST /webhook. Both first deliveries and retransmissions
// acknowledge with 200; the sender cannot tell them apart and should not.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}
	defer r.Body.Close()

	outcome, msg, err := h.svc.Ingest(r.Context(), rawBody, r.Header.Get(signatureHeader))
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			h.metrics.WebhookRequestsTotal.WithLabelValues(metrics.ResultInvalidSignature).Inc()
			h.logger.WarnContext(r.Context(), "webhook rejected",
				logging.Result(metrics.ResultInvalidSignature),
			)
			writeError(w, http.StatusUnauthorized, "invalid_signature", "invalid signature")
		case errors.As(err, &validationErr):
			h.metrics.WebhookRequestsTotal.WithLabelValues(metrics.ResultValidationError).Inc()
			h.logger.WarnContext(r.Context(), "webhook rejected",
				logging.Result(metrics.ResultValidationError),
				logging.Error(validationErr),
			)
			writeError(w, http.StatusUnprocessableEntity, "validation_error", validationErr.Error())
		default:
			h.metrics.WebhookRequestsTotal.WithLabelValues(metrics.ResultError).Inc()
			h.logger.ErrorContext(r.Context(), "webhook ingestion failed", logging.Error(err))
			writeError(w, http.StatusInternalServerError, "storage_unavailable", "failed to store message")
		}
		return
	}

	result := outcome.String()
	h.metrics.WebhookRequestsTotal.WithLabelValues(result).Inc()
	h.logger.InfoContext(r.Context(), "webhook ingested",
		logging.MessageID(msg.MessageID),
		logging.Result(result),
		"dup", outcome == repository.OutcomeDuplicate,
	)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
