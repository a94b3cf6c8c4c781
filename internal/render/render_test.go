package render_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/render"
)

func TestNotification_NewIncident(t *testing.T) {
	item := &domain.QueueItem{
		EventType: domain.EventNewIncident,
		NewIncident: &domain.NewIncidentPayload{
			Title:      "Building fire",
			Location:   "Main St 1",
			Severity:   "high",
			FireDeptID: "fd-1",
		},
	}

	title, body := render.Notification(item, domain.IncidentRef{})
	if title != "🔥 New incident: Building fire" {
		t.Fatalf("unexpected title: %q", title)
	}
	if body != "Main St 1 - high" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestNotification_Update(t *testing.T) {
	t.Run("short text passes through untouched", func(t *testing.T) {
		item := &domain.QueueItem{
			EventType: domain.EventUpdate,
			Update:    &domain.UpdatePayload{Text: "Crews on scene."},
		}
		title, body := render.Notification(item, domain.IncidentRef{})
		if title != "📋 New update" {
			t.Fatalf("unexpected title: %q", title)
		}
		if body != "Crews on scene." {
			t.Fatalf("unexpected body: %q", body)
		}
	})

	t.Run("250 characters truncate to exactly 200", func(t *testing.T) {
		text := strings.Repeat("x", 250)
		item := &domain.QueueItem{
			EventType: domain.EventUpdate,
			Update:    &domain.UpdatePayload{Text: text},
		}
		_, body := render.Notification(item, domain.IncidentRef{})
		if got := utf8.RuneCountInString(body); got != 200 {
			t.Fatalf("expected exactly 200 characters, got %d", got)
		}
		if body != text[:200] {
			t.Fatal("truncation point moved; cut must be character-exact")
		}
	})

	t.Run("truncation counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("ö", 250)
		item := &domain.QueueItem{
			EventType: domain.EventUpdate,
			Update:    &domain.UpdatePayload{Text: text},
		}
		_, body := render.Notification(item, domain.IncidentRef{})
		if got := utf8.RuneCountInString(body); got != 200 {
			t.Fatalf("expected 200 characters, got %d", got)
		}
		if !utf8.ValidString(body) {
			t.Fatal("truncation split a multi-byte character")
		}
	})

	t.Run("exactly 200 characters stays intact", func(t *testing.T) {
		text := strings.Repeat("y", 200)
		item := &domain.QueueItem{
			EventType: domain.EventUpdate,
			Update:    &domain.UpdatePayload{Text: text},
		}
		_, body := render.Notification(item, domain.IncidentRef{})
		if body != text {
			t.Fatal("text at the limit must not be modified")
		}
	})
}

func TestNotification_StatusChange(t *testing.T) {
	item := &domain.QueueItem{
		EventType: domain.EventStatusChange,
		StatusChange: &domain.StatusChangePayload{
			Title:     "Building fire",
			OldStatus: "ongoing",
			NewStatus: "closed",
		},
	}

	title, body := render.Notification(item, domain.IncidentRef{})
	if title != "⚡ Status changed: closed" {
		t.Fatalf("unexpected title: %q", title)
	}
	if body != "Building fire: ongoing → closed" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestNotification_StatusChangeFallsBackToIncidentTitle(t *testing.T) {
	item := &domain.QueueItem{
		EventType: domain.EventStatusChange,
		StatusChange: &domain.StatusChangePayload{
			OldStatus: "ongoing",
			NewStatus: "contained",
		},
	}

	_, body := render.Notification(item, domain.IncidentRef{Title: "Barn fire"})
	if body != "Barn fire: ongoing → contained" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestNotification_UnknownEventType(t *testing.T) {
	item := &domain.QueueItem{EventType: "heartbeat"}

	title, body := render.Notification(item, domain.IncidentRef{})
	if title != render.AppName {
		t.Fatalf("expected app name title, got %q", title)
	}
	if body != "" {
		t.Fatalf("expected empty body, got %q", body)
	}
}

func TestNotification_MissingPayloadFallsBack(t *testing.T) {
	// Event type says new_incident but the payload variant is absent —
	// the renderer must not panic and falls back like an unknown type.
	item := &domain.QueueItem{EventType: domain.EventNewIncident}

	title, body := render.Notification(item, domain.IncidentRef{})
	if title != render.AppName || body != "" {
		t.Fatalf("expected fallback, got %q / %q", title, body)
	}
}
