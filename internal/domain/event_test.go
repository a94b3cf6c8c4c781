package domain_test

import (
	"testing"

	"github.com/firewatch/incident-push/internal/domain"
)

func TestEventType_IsValid(t *testing.T) {
	for _, et := range []domain.EventType{domain.EventNewIncident, domain.EventUpdate, domain.EventStatusChange} {
		if !et.IsValid() {
			t.Fatalf("event type %q should be valid", et)
		}
	}
	if domain.EventType("heartbeat").IsValid() {
		t.Fatal("unknown event type should be invalid")
	}
}

func TestPlatform_IsValid(t *testing.T) {
	for _, p := range []domain.Platform{domain.PlatformWeb, domain.PlatformAndroid, domain.PlatformIOS} {
		if !p.IsValid() {
			t.Fatalf("platform %q should be valid", p)
		}
	}
	if domain.Platform("windows_phone").IsValid() {
		t.Fatal("unknown platform should be invalid")
	}
}

func TestQueueItem_FireDeptID(t *testing.T) {
	t.Run("new incident payload carries the department", func(t *testing.T) {
		item := domain.QueueItem{
			EventType:   domain.EventNewIncident,
			NewIncident: &domain.NewIncidentPayload{FireDeptID: "fd-7"},
		}
		if got := item.FireDeptID(); got != "fd-7" {
			t.Fatalf("expected fd-7, got %q", got)
		}
	})

	t.Run("other payloads fall back to the incident row", func(t *testing.T) {
		item := domain.QueueItem{
			EventType: domain.EventUpdate,
			Update:    &domain.UpdatePayload{Text: "x"},
		}
		if got := item.FireDeptID(); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
	})
}

func TestEvent_Ongoing(t *testing.T) {
	if !(domain.Event{Status: domain.StatusOngoing}).Ongoing() {
		t.Fatal("ongoing status must report ongoing")
	}
	for _, s := range []string{"closed", "contained", ""} {
		if (domain.Event{Status: s}).Ongoing() {
			t.Fatalf("status %q must not report ongoing", s)
		}
	}
}
