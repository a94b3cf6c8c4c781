// Package apns delivers notifications to iOS devices through APNs using
// provider-token (ES256 .p8 key) authorization.
package apns

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/push"
	"github.com/firewatch/incident-push/internal/push/es256"
)

const (
	productionHost = "https://api.push.apple.com"
	sandboxHost    = "https://api.sandbox.push.apple.com"

	// APNs rejects provider tokens older than 60 minutes with
	// ExpiredProviderToken. Re-mint before that with some slack.
	tokenLifetime = 50 * time.Minute
)

// Config carries the APNs signing material and transport settings.
// BaseURL overrides the Apple hosts; tests point it at a local mock.
type Config struct {
	KeyPEM  string // contents of the .p8 signing key
	KeyID   string
	TeamID  string
	Topic   string
	Sandbox bool
	BaseURL string
	Timeout time.Duration
}

// Client implements push.Pusher for the ios platform.
//
// The provider token is minted lazily and cached until it nears Apple's
// 60-minute expiry: APNs throttles provider-token refresh, so re-signing
// per device would trip the rate limit, while a stale token fails every
// delivery with ExpiredProviderToken. The mutex keeps the sign-once
// guarantee if dispatch is ever parallelized.
type Client struct {
	key        *ecdsa.PrivateKey
	keyID      string
	teamID     string
	topic      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	token    string
	mintedAt time.Time
}

// New parses the .p8 key once at startup. A missing key yields a client
// whose Send fails per delivery with ErrPushNotConfigured.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Sandbox {
			baseURL = sandboxHost
		} else {
			baseURL = productionHost
		}
	}

	c := &Client{
		keyID:      cfg.KeyID,
		teamID:     cfg.TeamID,
		topic:      cfg.Topic,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}

	if cfg.KeyPEM == "" {
		logger.Warn("APNs signing key not configured; ios push disabled")
		return c, nil
	}

	key, err := parseSigningKey(cfg.KeyPEM)
	if err != nil {
		return nil, fmt.Errorf("apns key: %w", err)
	}
	c.key = key
	return c, nil
}

func parseSigningKey(keyPEM string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS#8 key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is %T, not an ECDSA key", parsed)
	}
	return key, nil
}

type providerClaims struct {
	Issuer   string `json:"iss"`
	IssuedAt int64  `json:"iat"`
}

// providerToken returns the cached token, minting it on first use and
// re-minting once the cached one is older than tokenLifetime.
func (c *Client) providerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Sub(c.mintedAt) < tokenLifetime {
		return c.token, nil
	}

	token, err := es256.Sign(c.key, c.keyID, providerClaims{
		Issuer:   c.teamID,
		IssuedAt: now.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("mint provider token: %w", err)
	}
	c.token = token
	c.mintedAt = now
	return token, nil
}

type alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type aps struct {
	Alert          alert  `json:"alert"`
	Sound          string `json:"sound"`
	Badge          int    `json:"badge"`
	MutableContent int    `json:"mutable-content"`
}

type notification struct {
	APS        aps    `json:"aps"`
	IncidentID string `json:"incidentId,omitempty"`
}

// Send posts one alert push to the subscriber's device token.
func (c *Client) Send(ctx context.Context, sub *domain.Subscriber, msg push.Message) error {
	if c.key == nil {
		return domain.ErrPushNotConfigured
	}

	token, err := c.providerToken()
	if err != nil {
		return err
	}

	body, err := json.Marshal(notification{
		APS: aps{
			Alert:          alert{Title: msg.Title, Body: msg.Body},
			Sound:          "default",
			Badge:          1,
			MutableContent: 1,
		},
		IncidentID: msg.IncidentID,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	url := c.baseURL + "/3/device/" + sub.PushAddress
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("apns-topic", c.topic)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("apns rejected message: status %d", resp.StatusCode)
	}

	c.logger.Debug("ios push delivered", zap.String("subscriber_id", sub.ID))
	return nil
}

var _ push.Pusher = (*Client)(nil)
