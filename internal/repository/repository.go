package repository

import (
	"context"

	"github.com/firewatch/incident-push/internal/domain"
)

// QueueEntry pairs a queue item with the incident attributes subscriber
// filters are evaluated against. The pgx implementation joins the incident
// row in; keeping them together avoids a per-item round trip during drain.
type QueueEntry struct {
	Item     *domain.QueueItem
	Incident domain.IncidentRef
}

// QueueRepository defines the engine's view of the notification queue.
// The pgx implementation is in pg_queue_repo.go; tests use the hand-written
// mock (mock_repos.go).
type QueueRepository interface {
	// FetchUnprocessed returns up to limit unprocessed entries, oldest first.
	FetchUnprocessed(ctx context.Context, limit int) ([]QueueEntry, error)
	// MarkProcessed sets the item's processed flag. The flag is monotonic;
	// marking an already-processed item is a no-op.
	MarkProcessed(ctx context.Context, id string) error
	// CountUnprocessed reports the current backlog size (metrics gauge).
	CountUnprocessed(ctx context.Context) (int, error)
}

// SubscriberRepository reads the subscriber registry. The engine never
// writes to it; registration is owned by an external flow.
type SubscriberRepository interface {
	ListActive(ctx context.Context) ([]*domain.Subscriber, error)
}

// RegionRepository resolves fire departments to dispatch regions.
type RegionRepository interface {
	// RegionsByFireDept returns the full fire-department → region map.
	// Loaded once per invocation; queue payloads carry a department id
	// while subscriber filters are region-scoped.
	RegionsByFireDept(ctx context.Context) (map[string]string, error)
}
