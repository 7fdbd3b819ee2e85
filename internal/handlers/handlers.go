package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/models"
	"github.com/hooksink/hooksink/internal/service"
)

// Handler serves the public HTTP surface of the ingestion service.
type Handler struct {
	svc     *service.IngestService
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func New(svc *service.IngestService, m *metrics.Metrics, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, metrics: m, logger: logger}
}

// messageJSON is the wire form of a stored message.
type messageJSON struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

func toMessageJSON(m models.Message) messageJSON {
	return messageJSON{
		MessageID: m.MessageID,
		From:      m.From,
		To:        m.To,
		TS:        m.TS.UTC().Format(time.RFC3339Nano),
		Text:      m.Text,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
