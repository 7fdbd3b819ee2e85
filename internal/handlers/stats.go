package handlers

import (
	"net/http"
	"time"

	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/repository"
)

type statsResponse struct {
	TotalMessages     int64                    `json:"total_messages"`
	SendersCount      int64                    `json:"senders_count"`
	MessagesPerSender []repository.SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string                  `json:"first_message_ts"`
	LastMessageTS     *string                  `json:"last_message_ts"`
}

// Stats handles GET /stats: aggregates over the whole store from a single
// consistent snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats aggregation failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_unavailable", "failed to aggregate messages")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalMessages:     stats.TotalMessages,
		SendersCount:      stats.SendersCount,
		MessagesPerSender: stats.MessagesPerSender,
		FirstMessageTS:    formatTS(stats.FirstMessageTS),
		LastMessageTS:     formatTS(stats.LastMessageTS),
	})
}

func formatTS(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	s := ts.UTC().Format(time.RFC3339Nano)
	return &s
}
