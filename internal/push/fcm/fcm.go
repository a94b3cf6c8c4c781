// Package fcm delivers notifications to Android devices through the FCM
// legacy HTTP API.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/push"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Config carries the FCM server key and transport settings.
// BaseURL is injected from config so tests can point to a local mock.
type Config struct {
	ServerKey string
	BaseURL   string
	Timeout   time.Duration
}

// Client implements push.Pusher for the android platform.
//
// Android delivery is optional per deployment: with no server key the
// client is a deliberate no-op that logs a warning per attempt instead of
// producing delivery errors.
type Client struct {
	serverKey  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultEndpoint
	}
	if cfg.ServerKey == "" {
		logger.Warn("FCM server key not configured; android push disabled")
	}
	return &Client{
		serverKey:  cfg.ServerKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type sendRequest struct {
	To           string       `json:"to"`
	Notification notification `json:"notification"`
	Data         data         `json:"data"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type data struct {
	IncidentID  string `json:"incidentId"`
	ClickAction string `json:"clickAction"`
}

// Send posts one message to the subscriber's device token.
func (c *Client) Send(ctx context.Context, sub *domain.Subscriber, msg push.Message) error {
	if c.serverKey == "" {
		c.logger.Warn("dropping android push: no FCM server key",
			zap.String("subscriber_id", sub.ID))
		return nil
	}

	body, err := json.Marshal(sendRequest{
		To:           sub.PushAddress,
		Notification: notification{Title: msg.Title, Body: msg.Body},
		Data: data{
			IncidentID:  msg.IncidentID,
			ClickAction: "/incidents/" + msg.IncidentID,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fcm rejected message: status %d", resp.StatusCode)
	}

	c.logger.Debug("android push delivered", zap.String("subscriber_id", sub.ID))
	return nil
}

var _ push.Pusher = (*Client)(nil)
