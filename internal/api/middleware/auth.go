package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/firewatch/incident-push/internal/domain"
)

// Verifier decides whether a presented credential may trigger dispatch.
// Real caller authorization (roles, allow-lists) is owned by an external
// identity layer; this seam exists so a deployment can plug a strict
// implementation in without touching the engine.
type Verifier interface {
	Allow(credential string) bool
}

// PermissiveVerifier accepts any non-empty credential without checking
// its value. This mirrors the current product behaviour — whether it is
// intentional is an open question for the product owner, so it is kept
// isolated here rather than silently tightened.
type PermissiveVerifier struct{}

func (PermissiveVerifier) Allow(credential string) bool {
	return credential != ""
}

// RequireCredential returns a middleware enforcing the invocation
// contract's authorization steps: no credential → 401, verifier denial →
// 403. Both abort before any queue access.
func RequireCredential(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := strings.TrimSpace(r.Header.Get("Authorization"))
			if credential == "" {
				respondAuthError(w, http.StatusUnauthorized, domain.ErrNoCredential)
				return
			}
			if !v.Allow(credential) {
				respondAuthError(w, http.StatusForbidden, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// respondAuthError writes the sentinel's message in the same JSON error
// shape the handlers use, so callers see one error format either way.
func respondAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
