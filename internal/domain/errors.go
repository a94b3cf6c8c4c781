package domain

import "errors"

// Sentinel errors used throughout the application. Handlers translate
// these to HTTP status codes via a single mapError function; the
// credential middleware writes ErrNoCredential and ErrForbidden itself
// because it rejects requests before any handler runs.
var (
	ErrNoCredential      = errors.New("missing credential")
	ErrForbidden         = errors.New("caller is not allowed to trigger dispatch")
	ErrInvalidBody       = errors.New("invalid request body")
	ErrQueueFetch        = errors.New("queue fetch failed")
	ErrBadPushAddress    = errors.New("malformed push address")
	ErrPushNotConfigured = errors.New("push transport not configured")
	ErrNotFound          = errors.New("not found")
)
