package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const ctxKeyCorrelationID contextKey = "correlation_id"

// CorrelationID tags every request with an identifier that follows the
// dispatch run through the logs. External schedulers that trigger drains
// can pass their own X-Correlation-ID to tie our log lines back to their
// run; anything without one gets a fresh UUID. The ID is echoed in the
// response header either way.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), ctxKeyCorrelationID, id)
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the request's correlation ID, or "" when the
// middleware was not applied (direct service calls, the ticker worker).
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyCorrelationID).(string)
	return v
}
