package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/firewatch/incident-push/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise. The 401/403
// sentinels never reach this point: the credential middleware rejects
// those requests before a handler runs and writes them itself.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidBody):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQueueFetch):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
