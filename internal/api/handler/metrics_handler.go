package handler

import (
	"net/http"

	"github.com/firewatch/incident-push/internal/repository"
)

// MetricsHandler serves the JSON snapshot of the queue backlog. The raw
// Prometheus scrape lives on /metrics; this endpoint is for dashboards
// that want a single number without parsing the exposition format.
type MetricsHandler struct {
	queue repository.QueueRepository
}

func NewMetricsHandler(queue repository.QueueRepository) *MetricsHandler {
	return &MetricsHandler{queue: queue}
}

// GetMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	backlog, err := h.queue.CountUnprocessed(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue backlog")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"queue_backlog": backlog})
}
