package webpush

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// VAPID keys are stored in configuration the way browsers hand them out:
// the private key as a raw 32-byte P-256 scalar and the public key as a
// 65-byte uncompressed point, both base64url. The standard library's
// signer wants a full PKCS#8 document, so the scalar is wrapped into one
// with a fixed DER template. The byte layout is shared with the JS and PHP
// web-push ecosystems and must stay exactly as is.
//
// Template (RFC 5958 / SEC 1):
//
//	SEQUENCE(135)
//	  INTEGER 0
//	  SEQUENCE { OID ecPublicKey, OID prime256v1 }
//	  OCTET STRING(109)
//	    SEQUENCE(107)
//	      INTEGER 1
//	      OCTET STRING(32)  ← private scalar
//	      [1](68) BIT STRING(66, 0 unused) ← 0x04 ‖ X ‖ Y
var (
	pkcs8Prefix = []byte{
		0x30, 0x81, 0x87, // SEQUENCE, 135 bytes
		0x02, 0x01, 0x00, // INTEGER 0 (version)
		0x30, 0x13, // SEQUENCE, 19 bytes
		0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01, // OID id-ecPublicKey
		0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07, // OID prime256v1
		0x04, 0x6d, // OCTET STRING, 109 bytes
		0x30, 0x6b, // SEQUENCE, 107 bytes
		0x02, 0x01, 0x01, // INTEGER 1 (ecPrivkeyVer1)
		0x04, 0x20, // OCTET STRING, 32 bytes
	}
	pkcs8Middle = []byte{
		0xa1, 0x44, // [1], 68 bytes
		0x03, 0x42, 0x00, // BIT STRING, 66 bytes, 0 unused bits
	}
)

const (
	scalarLen = 32
	pointLen  = 65 // 0x04 ‖ X(32) ‖ Y(32)
)

// wrapPKCS8 assembles the PKCS#8 DER document for a raw P-256 scalar and
// its uncompressed public point.
func wrapPKCS8(scalar, publicPoint []byte) ([]byte, error) {
	if len(scalar) != scalarLen {
		return nil, fmt.Errorf("private scalar must be %d bytes, got %d", scalarLen, len(scalar))
	}
	if len(publicPoint) != pointLen || publicPoint[0] != 0x04 {
		return nil, fmt.Errorf("public key must be a %d-byte uncompressed point", pointLen)
	}

	der := make([]byte, 0, len(pkcs8Prefix)+scalarLen+len(pkcs8Middle)+pointLen)
	der = append(der, pkcs8Prefix...)
	der = append(der, scalar...)
	der = append(der, pkcs8Middle...)
	der = append(der, publicPoint...)
	return der, nil
}

// ParseSigningKey turns the configured base64url VAPID key pair into an
// ECDSA private key usable by the ES256 signer.
func ParseSigningKey(privateB64, publicB64 string) (*ecdsa.PrivateKey, error) {
	scalar, err := base64.RawURLEncoding.DecodeString(privateB64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	publicPoint, err := base64.RawURLEncoding.DecodeString(publicB64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	der, err := wrapPKCS8(scalar, publicPoint)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse wrapped key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("wrapped key is %T, not an ECDSA key", parsed)
	}
	return key, nil
}
