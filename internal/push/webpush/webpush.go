// Package webpush delivers encrypted messages to browser push endpoints
// per RFC 8291 (aes128gcm payload encryption) and RFC 8292 (VAPID).
package webpush

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/push"
)

// defaultTTL tells the push relay how long to hold an undelivered message.
const defaultTTL = 4 * time.Hour

// Config carries the VAPID material and transport settings for the client.
type Config struct {
	// PublicKey and PrivateKey are base64url: the 65-byte uncompressed
	// point and the raw 32-byte scalar.
	PublicKey  string
	PrivateKey string
	// Subject is the contact URI carried in the sub claim.
	Subject string
	Timeout time.Duration
}

// Client implements push.Pusher for the web platform.
type Client struct {
	signer     *ecdsa.PrivateKey
	publicKey  string
	subject    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New parses the VAPID key pair once at startup. Missing keys yield a
// client whose Send always fails with ErrPushNotConfigured; startup
// itself never aborts over an optional transport.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	c := &Client{
		publicKey:  cfg.PublicKey,
		subject:    cfg.Subject,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}

	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		logger.Warn("VAPID keys not configured; web push disabled")
		return c, nil
	}

	signer, err := ParseSigningKey(cfg.PrivateKey, cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("vapid keys: %w", err)
	}
	c.signer = signer
	return c, nil
}

// subscription is the browser's PushSubscription JSON, stored verbatim as
// the subscriber's push address.
type subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// payload is what the service worker receives after decryption.
type payload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	IncidentID string `json:"incidentId,omitempty"`
}

// Send encrypts msg for the subscriber and posts it to their endpoint.
// Every failure is scoped to this one delivery.
func (c *Client) Send(ctx context.Context, sub *domain.Subscriber, msg push.Message) error {
	if c.signer == nil {
		return domain.ErrPushNotConfigured
	}

	var s subscription
	if err := json.Unmarshal([]byte(sub.PushAddress), &s); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadPushAddress, err)
	}
	if s.Endpoint == "" || s.Keys.P256dh == "" || s.Keys.Auth == "" {
		return fmt.Errorf("%w: missing endpoint or keys", domain.ErrBadPushAddress)
	}

	subscriberPublic, err := base64.RawURLEncoding.DecodeString(s.Keys.P256dh)
	if err != nil {
		return fmt.Errorf("%w: p256dh: %v", domain.ErrBadPushAddress, err)
	}
	authSecret, err := base64.RawURLEncoding.DecodeString(s.Keys.Auth)
	if err != nil {
		return fmt.Errorf("%w: auth: %v", domain.ErrBadPushAddress, err)
	}

	plaintext, err := json.Marshal(payload{Title: msg.Title, Body: msg.Body, IncidentID: msg.IncidentID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	body, err := encrypt(plaintext, subscriberPublic, authSecret)
	if err != nil {
		return fmt.Errorf("encrypt payload: %w", err)
	}

	token, err := vapidToken(c.signer, s.Endpoint, c.subject, time.Now())
	if err != nil {
		return fmt.Errorf("vapid token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("vapid t=%s, k=%s", token, c.publicKey))
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("TTL", strconv.Itoa(int(defaultTTL.Seconds())))
	req.Header.Set("Urgency", "high")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push relay rejected message: status %d", resp.StatusCode)
	}

	c.logger.Debug("web push delivered",
		zap.String("subscriber_id", sub.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}

var _ push.Pusher = (*Client)(nil)
