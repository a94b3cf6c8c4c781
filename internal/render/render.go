// Package render maps queue items to notification text. Pure and
// deterministic: the same item always yields the same title and body.
package render

import (
	"fmt"

	"github.com/firewatch/incident-push/internal/domain"
)

// AppName is the fallback title for event types the renderer does not know.
const AppName = "Firewatch"

// maxUpdateBody is the hard cut applied to update texts. The cut is by
// character count with no word-boundary trimming.
const maxUpdateBody = 200

// Notification renders the (title, body) pair for one queue item.
// The incident ref supplies the title for status changes, whose payload
// may predate the rename of the incident.
func Notification(item *domain.QueueItem, inc domain.IncidentRef) (title, body string) {
	switch item.EventType {
	case domain.EventNewIncident:
		p := item.NewIncident
		if p == nil {
			return AppName, ""
		}
		return fmt.Sprintf("🔥 New incident: %s", p.Title),
			fmt.Sprintf("%s - %s", p.Location, p.Severity)

	case domain.EventUpdate:
		p := item.Update
		if p == nil {
			return AppName, ""
		}
		return "📋 New update", truncate(p.Text, maxUpdateBody)

	case domain.EventStatusChange:
		p := item.StatusChange
		if p == nil {
			return AppName, ""
		}
		title := p.Title
		if title == "" {
			title = inc.Title
		}
		return fmt.Sprintf("⚡ Status changed: %s", p.NewStatus),
			fmt.Sprintf("%s: %s → %s", title, p.OldStatus, p.NewStatus)
	}

	return AppName, ""
}

// truncate cuts s to at most n characters. Counting is by rune so a cut
// never splits a multi-byte character in half.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
