package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// RFC 8291 aes128gcm parameters. recordSize is the single-record size
// advertised in the header; every message here fits one record.
const (
	saltLen    = 16
	keyLen     = 16
	nonceLen   = 12
	recordSize = 4096
)

// HKDF info strings, fixed by RFC 8291 §3.3–3.4. The trailing NUL bytes
// are part of the wire contract.
var (
	infoIKMPrefix = []byte("WebPush: info\x00")
	infoCEK       = []byte("Content-Encoding: aes128gcm\x00")
	infoNonce     = []byte("Content-Encoding: nonce\x00")
)

// encrypt seals plaintext for the subscriber per RFC 8291 and returns the
// full aes128gcm body: header ‖ ciphertext.
//
// A fresh ephemeral key pair and a fresh random salt are generated on
// every call. Reusing either across messages would break the scheme's
// forward secrecy, so neither is cached.
func encrypt(plaintext, subscriberPublic, authSecret []byte) ([]byte, error) {
	curve := ecdh.P256()

	subscriberKey, err := curve.NewPublicKey(subscriberPublic)
	if err != nil {
		return nil, fmt.Errorf("subscriber public key: %w", err)
	}

	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	ephemeralPublic := ephemeral.PublicKey().Bytes()

	sharedSecret, err := ephemeral.ECDH(subscriberKey)
	if err != nil {
		return nil, fmt.Errorf("ecdh agreement: %w", err)
	}

	// IKM = HKDF(salt=auth, ikm=shared, info="WebPush: info\0" ‖ ua_public ‖ as_public)
	ikmInfo := make([]byte, 0, len(infoIKMPrefix)+2*pointLen)
	ikmInfo = append(ikmInfo, infoIKMPrefix...)
	ikmInfo = append(ikmInfo, subscriberPublic...)
	ikmInfo = append(ikmInfo, ephemeralPublic...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, authSecret, ikmInfo), ikm); err != nil {
		return nil, fmt.Errorf("derive ikm: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, infoCEK), key); err != nil {
		return nil, fmt.Errorf("derive content key: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, infoNonce), nonce); err != nil {
		return nil, fmt.Errorf("derive nonce: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm mode: %w", err)
	}

	// 0x02 marks the single, final record.
	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, 0x02)

	ciphertext := gcm.Seal(nil, nonce, record, nil)

	// Body: salt(16) ‖ rs(4, BE) ‖ keyid len(1) ‖ ephemeral point(65) ‖ ciphertext.
	body := make([]byte, 0, saltLen+4+1+pointLen+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, recordSize)
	body = append(body, byte(pointLen))
	body = append(body, ephemeralPublic...)
	body = append(body, ciphertext...)
	return body, nil
}
