package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/match"
	"github.com/firewatch/incident-push/internal/push"
	"github.com/firewatch/incident-push/internal/render"
	"github.com/firewatch/incident-push/internal/repository"
)

// Sender is the dispatcher seam the service depends on. The concrete
// implementation lives in the dispatch package; tests inject a fake.
type Sender interface {
	Dispatch(ctx context.Context, sub *domain.Subscriber, msg push.Message) error
}

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the service constructor signature clean; every
// hook is optional (nil = no-op).
type MetricHooks struct {
	OnSent    func(platform domain.Platform, latency time.Duration)
	OnFailed  func(platform domain.Platform)
	OnDrained func(items int, elapsed time.Duration)
}

func (h *MetricHooks) fillDefaults() {
	if h.OnSent == nil {
		h.OnSent = func(domain.Platform, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Platform) {}
	}
	if h.OnDrained == nil {
		h.OnDrained = func(int, time.Duration) {}
	}
}

// DrainResult is the invocation outcome of a queue drain.
type DrainResult struct {
	Sent   int `json:"sent"`
	Errors int `json:"errors"`
	Queued int `json:"queued"`
}

// BroadcastResult is the invocation outcome of a broadcast test.
type BroadcastResult struct {
	Sent      int                     `json:"sent"`
	Errors    int                     `json:"errors"`
	Total     int                     `json:"total"`
	Platforms map[domain.Platform]int `json:"platforms"`
}

// DispatchService is the orchestrator: it drains the event queue, matches
// subscribers, renders text once per item, and fans deliveries out through
// the dispatcher. The processed-flag mutation is its only persistent state
// change; everything else is transient per invocation.
//
// There is no inter-invocation locking: two concurrent drains can read the
// same unprocessed items before either marks them, duplicating delivery.
// That is the accepted at-least-once contract of this queue.
type DispatchService struct {
	queue       repository.QueueRepository
	subscribers repository.SubscriberRepository
	regions     repository.RegionRepository
	sender      Sender
	drainLimit  int
	logger      *zap.Logger
	hooks       MetricHooks
}

func NewDispatchService(
	queue repository.QueueRepository,
	subscribers repository.SubscriberRepository,
	regions repository.RegionRepository,
	sender Sender,
	drainLimit int,
	logger *zap.Logger,
	hooks MetricHooks,
) *DispatchService {
	hooks.fillDefaults()
	return &DispatchService{
		queue:       queue,
		subscribers: subscribers,
		regions:     regions,
		sender:      sender,
		drainLimit:  drainLimit,
		logger:      logger,
		hooks:       hooks,
	}
}

// DrainQueue processes up to the configured limit of unprocessed queue
// items, oldest first. Per item: resolve the dispatch region, match
// subscribers, render once, dispatch per match, then mark the item
// processed unconditionally — a batch where every delivery failed is
// still done; there is no retry path.
//
// A queue/registry/lookup read failure aborts the whole run before any
// item is marked.
func (s *DispatchService) DrainQueue(ctx context.Context) (*DrainResult, error) {
	start := time.Now()

	entries, err := s.queue.FetchUnprocessed(ctx, s.drainLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueFetch, err)
	}

	result := &DrainResult{Queued: len(entries)}
	if len(entries) == 0 {
		return result, nil
	}

	regions, err := s.regions.RegionsByFireDept(ctx)
	if err != nil {
		return nil, fmt.Errorf("load region lookup: %w", err)
	}
	subs, err := s.subscribers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	for _, entry := range entries {
		sent, errors := s.processEntry(ctx, entry, regions, subs)
		result.Sent += sent
		result.Errors += errors

		if err := s.queue.MarkProcessed(ctx, entry.Item.ID); err != nil {
			// The item will be picked up again next run: duplicate
			// delivery within the at-least-once contract, not data loss.
			s.logger.Error("failed to mark item processed",
				zap.String("item_id", entry.Item.ID), zap.Error(err))
		}
	}

	s.hooks.OnDrained(len(entries), time.Since(start))
	s.logger.Info("queue drained",
		zap.Int("items", len(entries)),
		zap.Int("sent", result.Sent),
		zap.Int("errors", result.Errors),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (s *DispatchService) processEntry(
	ctx context.Context,
	entry repository.QueueEntry,
	regions map[string]string,
	subs []*domain.Subscriber,
) (sent, errors int) {
	ev := buildEvent(entry, regions)
	matched := match.Subscribers(ev, subs)
	if len(matched) == 0 {
		return 0, 0
	}

	// Render once per item, not per subscriber.
	title, body := render.Notification(entry.Item, entry.Incident)
	msg := push.Message{Title: title, Body: body, IncidentID: entry.Item.IncidentID}

	for _, sub := range matched {
		start := time.Now()
		if err := s.sender.Dispatch(ctx, sub, msg); err != nil {
			// Delivery failures are scoped to one subscriber and never
			// abort the item or the batch.
			errors++
			s.hooks.OnFailed(sub.Platform)
			s.logger.Warn("push delivery failed",
				zap.String("item_id", entry.Item.ID),
				zap.String("subscriber_id", sub.ID),
				zap.String("platform", string(sub.Platform)),
				zap.Error(err))
			continue
		}
		sent++
		s.hooks.OnSent(sub.Platform, time.Since(start))
	}
	return sent, errors
}

// buildEvent assembles the matching view of one entry. The dispatch region
// is resolved through the fire-department lookup; an unknown department
// leaves RegionID empty, which excludes region-filtered subscribers.
// For status changes the payload's post-transition status is authoritative
// over the incident row.
func buildEvent(entry repository.QueueEntry, regions map[string]string) domain.Event {
	deptID := entry.Item.FireDeptID()
	if deptID == "" {
		deptID = entry.Incident.FireDeptID
	}

	status := entry.Incident.Status
	if p := entry.Item.StatusChange; p != nil && p.NewStatus != "" {
		status = p.NewStatus
	}

	return domain.Event{
		Type:       entry.Item.EventType,
		IncidentID: entry.Item.IncidentID,
		RegionID:   regions[deptID],
		CountyID:   entry.Incident.CountyID,
		CategoryID: entry.Incident.CategoryID,
		Status:     status,
	}
}

// testMessage is the fixed notification BroadcastTest sends to everyone.
var testMessage = push.Message{
	Title: "🔔 " + render.AppName + " test notification",
	Body:  "Push delivery is working for this device.",
}

// BroadcastTest bypasses the queue entirely: every active subscriber gets
// one fixed test notification regardless of their filters. Used to verify
// transport configuration end to end.
func (s *DispatchService) BroadcastTest(ctx context.Context) (*BroadcastResult, error) {
	subs, err := s.subscribers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	result := &BroadcastResult{
		Total:     len(subs),
		Platforms: make(map[domain.Platform]int),
	}

	for _, sub := range subs {
		result.Platforms[sub.Platform]++

		start := time.Now()
		if err := s.sender.Dispatch(ctx, sub, testMessage); err != nil {
			result.Errors++
			s.hooks.OnFailed(sub.Platform)
			s.logger.Warn("test push failed",
				zap.String("subscriber_id", sub.ID),
				zap.String("platform", string(sub.Platform)),
				zap.Error(err))
			continue
		}
		result.Sent++
		s.hooks.OnSent(sub.Platform, time.Since(start))
	}

	s.logger.Info("broadcast test finished",
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("errors", result.Errors))
	return result, nil
}
