package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/firewatch/incident-push/internal/domain"
)

// PlatformLimiters holds one token bucket limiter per push platform.
// Each limiter enforces a steady-state rate (e.g. 100 tokens/sec).
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum — the push authorities
// throttle aggressive senders.
type PlatformLimiters struct {
	limiters map[domain.Platform]*rate.Limiter
}

// New creates a PlatformLimiters with ratePerSec tokens per second per platform.
func New(ratePerSec int) *PlatformLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	return &PlatformLimiters{
		limiters: map[domain.Platform]*rate.Limiter{
			domain.PlatformWeb:     rate.NewLimiter(r, burst),
			domain.PlatformAndroid: rate.NewLimiter(r, burst),
			domain.PlatformIOS:     rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the platform's limiter grants a token. Unknown
// platforms pass through unlimited; the dispatcher skips them anyway.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (pl *PlatformLimiters) Wait(ctx context.Context, p domain.Platform) error {
	l, ok := pl.limiters[p]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
