// Package dispatch routes rendered notifications to the platform adapter
// matching each subscriber.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/push"
	"github.com/firewatch/incident-push/internal/ratelimiter"
)

// Dispatcher fans one message out to the right transport per subscriber.
type Dispatcher struct {
	web     push.Pusher
	android push.Pusher
	ios     push.Pusher
	limiter *ratelimiter.PlatformLimiters
	logger  *zap.Logger
}

func New(
	web, android, ios push.Pusher,
	limiter *ratelimiter.PlatformLimiters,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{web: web, android: android, ios: ios, limiter: limiter, logger: logger}
}

// Dispatch routes (subscriber, message) to the platform adapter. An
// unrecognized platform value is logged and skipped without an error —
// a registry row with a platform this binary predates must not poison
// the batch counters.
func (d *Dispatcher) Dispatch(ctx context.Context, sub *domain.Subscriber, msg push.Message) error {
	var pusher push.Pusher
	switch sub.Platform {
	case domain.PlatformWeb:
		pusher = d.web
	case domain.PlatformAndroid:
		pusher = d.android
	case domain.PlatformIOS:
		pusher = d.ios
	default:
		d.logger.Warn("skipping subscriber with unknown platform",
			zap.String("subscriber_id", sub.ID),
			zap.String("platform", string(sub.Platform)))
		return nil
	}

	if err := d.limiter.Wait(ctx, sub.Platform); err != nil {
		return err
	}
	return pusher.Send(ctx, sub, msg)
}
