package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/firewatch/incident-push/internal/api/middleware"
	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/service"
)

// DispatchHandler exposes the single synchronous invocation endpoint.
type DispatchHandler struct {
	svc    *service.DispatchService
	logger *zap.Logger
}

func NewDispatchHandler(svc *service.DispatchService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{svc: svc, logger: logger}
}

type dispatchRequest struct {
	Test bool `json:"test"`
}

// Dispatch handles POST /api/v1/dispatch
//
// The body is optional. An empty body (or {}) drains the queue; {"test":true}
// bypasses the queue and broadcasts a fixed test notification to every
// active subscriber. Anything unparsable is a 400 with no queue access.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			mapError(w, domain.ErrInvalidBody)
			return
		}
	}

	log := h.logger.With(zap.String("correlation_id", apimw.GetCorrelationID(r.Context())))

	if req.Test {
		result, err := h.svc.BroadcastTest(r.Context())
		if err != nil {
			log.Error("broadcast test failed", zap.Error(err))
			mapError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := h.svc.DrainQueue(r.Context())
	if err != nil {
		// Queue fetch failure is fatal for the invocation; nothing was
		// marked processed.
		log.Error("queue drain failed", zap.Error(err))
		if errors.Is(err, domain.ErrQueueFetch) {
			mapError(w, err)
			return
		}
		respondError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
