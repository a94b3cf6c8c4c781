package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/push"
	"github.com/firewatch/incident-push/internal/repository"
	"github.com/firewatch/incident-push/internal/service"
)

// fakeSender records dispatches and fails the subscriber ids listed in failFor.
type fakeSender struct {
	dispatched []dispatchCall
	failFor    map[string]error
}

type dispatchCall struct {
	SubscriberID string
	Platform     domain.Platform
	Msg          push.Message
}

func (f *fakeSender) Dispatch(_ context.Context, sub *domain.Subscriber, msg push.Message) error {
	f.dispatched = append(f.dispatched, dispatchCall{SubscriberID: sub.ID, Platform: sub.Platform, Msg: msg})
	if err, ok := f.failFor[sub.ID]; ok {
		return err
	}
	return nil
}

func webSubscriber(id string) *domain.Subscriber {
	return &domain.Subscriber{
		ID:          id,
		DeviceID:    "dev-" + id,
		Platform:    domain.PlatformWeb,
		PushAddress: `{"endpoint":"https://relay.example/` + id + `","keys":{"p256dh":"pk","auth":"as"}}`,
		Active:      true,
	}
}

func newIncidentItem(id, incidentID string, created time.Time) *domain.QueueItem {
	return &domain.QueueItem{
		ID:         id,
		IncidentID: incidentID,
		EventType:  domain.EventNewIncident,
		NewIncident: &domain.NewIncidentPayload{
			Title:      "Building fire",
			Location:   "Main St 1",
			Severity:   "high",
			FireDeptID: "fd-1",
		},
		CreatedAt: created,
	}
}

func newService(
	q *repository.MockQueueRepository,
	subs *repository.MockSubscriberRepository,
	regions *repository.MockRegionRepository,
	sender service.Sender,
) *service.DispatchService {
	return service.NewDispatchService(q, subs, regions, sender, 50, zap.NewNop(), service.MetricHooks{})
}

// TestDrainQueue_EndToEnd is the reference scenario: one new_incident item,
// one wildcard web subscriber, transport success.
func TestDrainQueue_EndToEnd(t *testing.T) {
	q := repository.NewMockQueueRepository()
	q.Add(newIncidentItem("q1", "inc-1", time.Now()),
		domain.IncidentRef{Title: "Building fire", FireDeptID: "fd-1", CountyID: "c1", CategoryID: "cat1", Status: domain.StatusOngoing})

	subs := repository.NewMockSubscriberRepository(webSubscriber("s1"))
	regions := repository.NewMockRegionRepository(map[string]string{"fd-1": "r1"})
	sender := &fakeSender{}

	result, err := newService(q, subs, regions, sender).DrainQueue(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}

	if result.Sent != 1 || result.Errors != 0 || result.Queued != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(sender.dispatched) != 1 {
		t.Fatalf("expected exactly one dispatch attempt, got %d", len(sender.dispatched))
	}

	call := sender.dispatched[0]
	if call.Msg.Title != "🔥 New incident: Building fire" {
		t.Fatalf("unexpected title: %q", call.Msg.Title)
	}
	if call.Msg.Body != "Main St 1 - high" {
		t.Fatalf("unexpected body: %q", call.Msg.Body)
	}
	if call.Msg.IncidentID != "inc-1" {
		t.Fatalf("unexpected incident id: %q", call.Msg.IncidentID)
	}

	if !q.Processed("q1") {
		t.Fatal("item must be marked processed after dispatch")
	}
}

// TestDrainQueue_MarksProcessedEvenWhenAllDispatchesFail pins the silent-
// loss design choice inherited from the product: processing an item is a
// one-shot, regardless of delivery outcome.
func TestDrainQueue_MarksProcessedEvenWhenAllDispatchesFail(t *testing.T) {
	q := repository.NewMockQueueRepository()
	q.Add(newIncidentItem("q1", "inc-1", time.Now()),
		domain.IncidentRef{FireDeptID: "fd-1", Status: domain.StatusOngoing})

	subs := repository.NewMockSubscriberRepository(webSubscriber("s1"), webSubscriber("s2"))
	regions := repository.NewMockRegionRepository(map[string]string{"fd-1": "r1"})
	sender := &fakeSender{failFor: map[string]error{
		"s1": errors.New("endpoint gone"),
		"s2": errors.New("relay timeout"),
	}}

	result, err := newService(q, subs, regions, sender).DrainQueue(context.Background())
	if err != nil {
		t.Fatalf("drain must not fail over delivery errors: %v", err)
	}
	if result.Sent != 0 || result.Errors != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !q.Processed("q1") {
		t.Fatal("item must be marked processed even when every delivery failed")
	}
}

// TestDrainQueue_FetchFailureIsFatal: an unreadable queue aborts the run
// before anything is marked.
func TestDrainQueue_FetchFailureIsFatal(t *testing.T) {
	q := repository.NewMockQueueRepository()
	q.FetchErr = errors.New("connection refused")

	sender := &fakeSender{}
	_, err := newService(q, repository.NewMockSubscriberRepository(), repository.NewMockRegionRepository(nil), sender).DrainQueue(context.Background())
	if !errors.Is(err, domain.ErrQueueFetch) {
		t.Fatalf("expected ErrQueueFetch, got %v", err)
	}
	if len(sender.dispatched) != 0 {
		t.Fatal("nothing may be dispatched after a fetch failure")
	}
}

func TestDrainQueue_RespectsLimitAndOrder(t *testing.T) {
	q := repository.NewMockQueueRepository()
	base := time.Now()
	inc := domain.IncidentRef{FireDeptID: "fd-1", Status: domain.StatusOngoing}
	// Insert newest first to prove ordering comes from created_at, not insertion.
	q.Add(newIncidentItem("q3", "inc-3", base.Add(2*time.Second)), inc)
	q.Add(newIncidentItem("q1", "inc-1", base), inc)
	q.Add(newIncidentItem("q2", "inc-2", base.Add(time.Second)), inc)

	subs := repository.NewMockSubscriberRepository(webSubscriber("s1"))
	regions := repository.NewMockRegionRepository(map[string]string{"fd-1": "r1"})
	sender := &fakeSender{}

	svc := service.NewDispatchService(q, subs, regions, sender, 2, zap.NewNop(), service.MetricHooks{})
	result, err := svc.DrainQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Queued != 2 {
		t.Fatalf("expected 2 items fetched under limit, got %d", result.Queued)
	}
	if sender.dispatched[0].Msg.IncidentID != "inc-1" || sender.dispatched[1].Msg.IncidentID != "inc-2" {
		t.Fatalf("items not processed oldest-first: %+v", sender.dispatched)
	}
	if q.Processed("q3") {
		t.Fatal("item beyond the limit must stay unprocessed")
	}
}

// TestDrainQueue_UnresolvedRegionExcludesRegionFiltered: an unrecognized
// fire department leaves the region empty, so region-filtered subscribers
// drop out while wildcards still receive the push.
func TestDrainQueue_UnresolvedRegionExcludesRegionFiltered(t *testing.T) {
	q := repository.NewMockQueueRepository()
	item := newIncidentItem("q1", "inc-1", time.Now())
	item.NewIncident.FireDeptID = "fd-unknown"
	q.Add(item, domain.IncidentRef{FireDeptID: "fd-unknown", Status: domain.StatusOngoing})

	regional := webSubscriber("regional")
	regional.RegionIDs = []string{"r1"}
	wildcard := webSubscriber("wildcard")

	subs := repository.NewMockSubscriberRepository(regional, wildcard)
	regions := repository.NewMockRegionRepository(map[string]string{"fd-1": "r1"})
	sender := &fakeSender{}

	result, err := newService(q, subs, regions, sender).DrainQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 {
		t.Fatalf("expected only the wildcard subscriber, got %+v", result)
	}
	if sender.dispatched[0].SubscriberID != "wildcard" {
		t.Fatalf("wrong subscriber matched: %s", sender.dispatched[0].SubscriberID)
	}
}

func TestDrainQueue_EmptyQueue(t *testing.T) {
	q := repository.NewMockQueueRepository()
	sender := &fakeSender{}

	result, err := newService(q, repository.NewMockSubscriberRepository(), repository.NewMockRegionRepository(nil), sender).DrainQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 0 || result.Errors != 0 || result.Queued != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestBroadcastTest(t *testing.T) {
	ios := &domain.Subscriber{ID: "i1", Platform: domain.PlatformIOS, PushAddress: "tok", Active: true}
	android := &domain.Subscriber{ID: "a1", Platform: domain.PlatformAndroid, PushAddress: "tok", Active: true}
	inactive := webSubscriber("off")
	inactive.Active = false

	// Filters are ignored in broadcast mode.
	filtered := webSubscriber("w1")
	filtered.RegionIDs = []string{"r-nowhere"}
	filtered.OnlyOngoing = true

	subs := repository.NewMockSubscriberRepository(filtered, ios, android, inactive)
	sender := &fakeSender{failFor: map[string]error{"a1": errors.New("no key")}}

	result, err := newService(repository.NewMockQueueRepository(), subs, repository.NewMockRegionRepository(nil), sender).BroadcastTest(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Total != 3 {
		t.Fatalf("inactive subscribers must be excluded, got total=%d", result.Total)
	}
	if result.Sent != 2 || result.Errors != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Platforms[domain.PlatformWeb] != 1 ||
		result.Platforms[domain.PlatformIOS] != 1 ||
		result.Platforms[domain.PlatformAndroid] != 1 {
		t.Fatalf("unexpected platform counts: %v", result.Platforms)
	}
}

func TestBroadcastTest_RegistryFailureIsFatal(t *testing.T) {
	subs := repository.NewMockSubscriberRepository()
	subs.ListErr = errors.New("registry down")

	_, err := newService(repository.NewMockQueueRepository(), subs, repository.NewMockRegionRepository(nil), &fakeSender{}).BroadcastTest(context.Background())
	if err == nil {
		t.Fatal("expected error when the registry is unreadable")
	}
}
