package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/service"
)

// DrainWorker periodically triggers a queue drain — the scheduled flavour
// of the invocation contract, complementing the webhook endpoint. It is
// optional: a zero interval disables it and deployments rely on the HTTP
// trigger alone.
type DrainWorker struct {
	svc      *service.DispatchService
	interval time.Duration
	logger   *zap.Logger
}

func NewDrainWorker(svc *service.DispatchService, interval time.Duration, logger *zap.Logger) *DrainWorker {
	return &DrainWorker{svc: svc, interval: interval, logger: logger}
}

// Run ticks every interval and drains the queue.
// Stops cleanly when ctx is cancelled.
func (dw *DrainWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(dw.interval)
	defer ticker.Stop()

	dw.logger.Info("drain worker started", zap.Duration("interval", dw.interval))

	for {
		select {
		case <-ctx.Done():
			dw.logger.Info("drain worker stopping")
			return
		case <-ticker.C:
			dw.poll(ctx)
		}
	}
}

func (dw *DrainWorker) poll(ctx context.Context) {
	result, err := dw.svc.DrainQueue(ctx)
	if err != nil {
		dw.logger.Error("scheduled drain failed", zap.Error(err))
		return
	}
	if result.Queued > 0 {
		dw.logger.Info("scheduled drain finished",
			zap.Int("queued", result.Queued),
			zap.Int("sent", result.Sent),
			zap.Int("errors", result.Errors))
	}
}
