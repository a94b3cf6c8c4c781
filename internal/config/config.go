package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
// Push credentials are optional: an adapter whose credentials are absent
// soft-fails per delivery instead of aborting startup.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Queue drain
	DrainLimit    int
	DrainInterval time.Duration // 0 disables the background drain worker

	// Outbound push transports
	PushTimeout time.Duration
	RateLimit   int // max sends per second per platform

	// Web Push (VAPID)
	VAPIDPublicKey  string // base64url, 65-byte uncompressed P-256 point
	VAPIDPrivateKey string // base64url, raw 32-byte P-256 scalar
	VAPIDSubject    string // contact URI, e.g. mailto:ops@example.org

	// Android (FCM legacy HTTP)
	FCMServerKey string

	// iOS (APNs provider token)
	APNSKeyPEM  string // PKCS#8 PEM, the .p8 signing key contents
	APNSKeyID   string
	APNSTeamID  string
	APNSTopic   string
	APNSSandbox bool
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		DrainLimit:    getInt("DRAIN_LIMIT", 50),
		DrainInterval: getDuration("DRAIN_INTERVAL", 0),

		PushTimeout: getDuration("PUSH_TIMEOUT", 10*time.Second),
		RateLimit:   getInt("RATE_LIMIT_PER_PLATFORM", 100),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:ops@firewatch.example"),

		FCMServerKey: os.Getenv("FCM_SERVER_KEY"),

		APNSKeyPEM:  os.Getenv("APNS_KEY_PEM"),
		APNSKeyID:   os.Getenv("APNS_KEY_ID"),
		APNSTeamID:  os.Getenv("APNS_TEAM_ID"),
		APNSTopic:   getEnv("APNS_TOPIC", "org.firewatch.incidents"),
		APNSSandbox: getBool("APNS_SANDBOX", false),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
