package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

type messagesResponse struct {
	Data   []messageJSON `json:"data"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Messages handles GET /messages: filtered, paginated reads in the
// (ts, message_id) total order. total counts the full matching set
// independent of the page bounds.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	q := r.URL.Query()

	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"offset must be a non-negative integer")
			return
		}
		offset = n
	}

	filter := repository.Filter{
		From: q.Get("from"),
		Q:    q.Get("q"),
	}
	if raw := q.Get("since"); raw != "" {
		if !strings.HasSuffix(raw, "Z") {
			writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"since must be ISO-8601 UTC with 'Z' suffix")
			return
		}
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"since must be a valid ISO-8601 timestamp")
			return
		}
		since = since.UTC()
		filter.Since = &since
	}

	messages, total, err := h.svc.List(r.Context(), filter, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "message query failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_unavailable", "failed to query messages")
		return
	}

	data := make([]messageJSON, 0, len(messages))
	for _, m := range messages {
		data = append(data, toMessageJSON(m))
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Data:   data,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
