package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/firewatch/incident-push/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
type MockQueueRepository struct {
	mu      sync.RWMutex
	entries map[string]QueueEntry

	// Optional error overrides — set in tests to simulate failure paths.
	FetchErr         error
	MarkProcessedErr error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{entries: make(map[string]QueueEntry)}
}

// Add stores an entry. The incident ref is keyed off the item's incident id.
func (m *MockQueueRepository) Add(item *domain.QueueItem, inc domain.IncidentRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *item
	inc.ID = item.IncidentID
	m.entries[item.ID] = QueueEntry{Item: &clone, Incident: inc}
}

func (m *MockQueueRepository) FetchUnprocessed(_ context.Context, limit int) ([]QueueEntry, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []QueueEntry
	for _, e := range m.entries {
		if !e.Item.Processed {
			item := *e.Item
			entries = append(entries, QueueEntry{Item: &item, Incident: e.Incident})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Item.CreatedAt.Before(entries[j].Item.CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockQueueRepository) MarkProcessed(_ context.Context, id string) error {
	if m.MarkProcessedErr != nil {
		return m.MarkProcessedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.Item.Processed = true
	}
	return nil
}

func (m *MockQueueRepository) CountUnprocessed(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if !e.Item.Processed {
			n++
		}
	}
	return n, nil
}

// Processed reports the processed flag of one stored item.
func (m *MockQueueRepository) Processed(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return ok && e.Item.Processed
}

var _ QueueRepository = (*MockQueueRepository)(nil)

// MockSubscriberRepository is an in-memory SubscriberRepository for tests.
type MockSubscriberRepository struct {
	mu          sync.RWMutex
	subscribers []*domain.Subscriber

	ListErr error
}

func NewMockSubscriberRepository(subs ...*domain.Subscriber) *MockSubscriberRepository {
	return &MockSubscriberRepository{subscribers: subs}
}

func (m *MockSubscriberRepository) ListActive(_ context.Context) ([]*domain.Subscriber, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*domain.Subscriber
	for _, s := range m.subscribers {
		if s.Active {
			clone := *s
			active = append(active, &clone)
		}
	}
	return active, nil
}

var _ SubscriberRepository = (*MockSubscriberRepository)(nil)

// MockRegionRepository is an in-memory RegionRepository for tests.
type MockRegionRepository struct {
	Regions map[string]string
	LoadErr error
}

func NewMockRegionRepository(regions map[string]string) *MockRegionRepository {
	if regions == nil {
		regions = make(map[string]string)
	}
	return &MockRegionRepository{Regions: regions}
}

func (m *MockRegionRepository) RegionsByFireDept(_ context.Context) (map[string]string, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make(map[string]string, len(m.Regions))
	for k, v := range m.Regions {
		out[k] = v
	}
	return out, nil
}

var _ RegionRepository = (*MockRegionRepository)(nil)
