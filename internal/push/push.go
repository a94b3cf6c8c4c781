// Package push defines the transport-neutral delivery contract
// implemented by the web, android, and ios adapters.
package push

import (
	"context"

	"github.com/firewatch/incident-push/internal/domain"
)

// Message is one rendered notification. IncidentID lets the receiving
// client deep-link to the incident.
type Message struct {
	Title      string
	Body       string
	IncidentID string
}

// Pusher delivers one message to one subscriber's device.
// Mocking this interface in tests gives full control over transport
// behaviour without making real HTTP calls.
type Pusher interface {
	Send(ctx context.Context, sub *domain.Subscriber, msg Message) error
}
