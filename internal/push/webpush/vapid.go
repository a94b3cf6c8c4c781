package webpush

import (
	"crypto/ecdsa"
	"fmt"
	"net/url"
	"time"

	"github.com/firewatch/incident-push/internal/push/es256"
)

// tokenLifetime is well under the 24 h ceiling RFC 8292 allows.
const tokenLifetime = 12 * time.Hour

type vapidClaims struct {
	Audience string `json:"aud"`
	Expiry   int64  `json:"exp"`
	Subject  string `json:"sub"`
}

// vapidToken signs the RFC 8292 authorization token for one push endpoint.
// The audience is the endpoint's origin, never the full URL: one relay
// serves many subscription paths under the same token.
func vapidToken(key *ecdsa.PrivateKey, endpoint, subject string, now time.Time) (string, error) {
	origin, err := endpointOrigin(endpoint)
	if err != nil {
		return "", err
	}
	return es256.Sign(key, "", vapidClaims{
		Audience: origin,
		Expiry:   now.Add(tokenLifetime).Unix(),
		Subject:  subject,
	})
}

func endpointOrigin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no origin", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}
