// Package es256 builds compact JWTs signed with ECDSA P-256 / SHA-256.
// Both push authorities consume them: VAPID tokens for browser push
// relays and provider tokens for APNs. Signatures are emitted in the raw
// 64-byte r‖s form required by JWS, not ASN.1 DER.
package es256

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Header is the JOSE header as defined in RFC 7515. KeyID is set only for
// APNs provider tokens; VAPID tokens identify the key via the k= parameter
// of the Authorization header instead.
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid,omitempty"`
}

var b64 = base64.RawURLEncoding

// Sign serializes header.claims and appends the ES256 signature over the
// signing input. claims may be any JSON-serializable value.
func Sign(key *ecdsa.PrivateKey, keyID string, claims any) (string, error) {
	if key == nil {
		return "", fmt.Errorf("signing key is nil")
	}

	headerJSON, err := json.Marshal(Header{Type: "JWT", Algorithm: "ES256", KeyID: keyID})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := b64.EncodeToString(headerJSON) + "." + b64.EncodeToString(claimsJSON)

	digest := sha256.Sum256([]byte(signingInput))
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	// JWS wants fixed-width big-endian r and s, 32 bytes each.
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])

	return signingInput + "." + b64.EncodeToString(sig), nil
}
