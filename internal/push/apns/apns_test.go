package apns

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/domain"
	"github.com/firewatch/incident-push/internal/push"
)

func testKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func testConfig(t *testing.T, baseURL string) Config {
	return Config{
		KeyPEM:  testKeyPEM(t),
		KeyID:   "KEY123",
		TeamID:  "TEAM456",
		Topic:   "org.firewatch.incidents",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

func iosSub(id, token string) *domain.Subscriber {
	return &domain.Subscriber{ID: id, DeviceID: "dev-" + id, Platform: domain.PlatformIOS, PushAddress: token, Active: true}
}

func TestClient_Send(t *testing.T) {
	var gotPath, gotAuth, gotTopic, gotPushType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotTopic = r.Header.Get("apns-topic")
		gotPushType = r.Header.Get("apns-push-type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(testConfig(t, srv.URL), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	msg := push.Message{Title: "⚡ Status changed: closed", Body: "Building fire: ongoing → closed", IncidentID: "inc-9"}
	if err := c.Send(context.Background(), iosSub("1", "devicetoken123"), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotPath != "/3/device/devicetoken123" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "bearer ") {
		t.Fatalf("unexpected Authorization: %q", gotAuth)
	}
	if gotTopic != "org.firewatch.incidents" || gotPushType != "alert" {
		t.Fatalf("unexpected topic/push-type: %q / %q", gotTopic, gotPushType)
	}

	var n notification
	if err := json.Unmarshal(gotBody, &n); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if n.APS.Alert.Title != msg.Title || n.APS.Alert.Body != msg.Body {
		t.Fatalf("unexpected alert: %+v", n.APS.Alert)
	}
	if n.APS.Sound != "default" || n.APS.Badge != 1 || n.APS.MutableContent != 1 {
		t.Fatalf("unexpected aps fields: %+v", n.APS)
	}
	if n.IncidentID != "inc-9" {
		t.Fatalf("unexpected incident id: %q", n.IncidentID)
	}
}

// TestClient_TokenSignedOncePerInvocation sends to several devices and
// requires every request to carry the byte-identical token. ES256
// signatures are randomized, so identical Authorization headers prove the
// token was minted exactly once and reused.
func TestClient_TokenSignedOncePerInvocation(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(testConfig(t, srv.URL), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	const devices = 5
	for i := 0; i < devices; i++ {
		sub := iosSub(fmt.Sprint(i), fmt.Sprintf("token-%d", i))
		if err := c.Send(context.Background(), sub, push.Message{Title: "t", Body: "b"}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	if len(auths) != devices {
		t.Fatalf("expected %d requests, got %d", devices, len(auths))
	}
	for i, a := range auths {
		if a != auths[0] {
			t.Fatalf("request %d used a different token; provider token must be cached", i)
		}
	}
	if c.token == "" {
		t.Fatal("token cache not populated")
	}
}

// TestClient_TokenRefreshesBeforeExpiry pins the cache lifetime: within
// the 50-minute window every send reuses the cached token, and the first
// send past it carries a freshly minted one. Without the refresh a
// long-lived process would keep presenting a token Apple rejects as
// expired after an hour.
func TestClient_TokenRefreshesBeforeExpiry(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(testConfig(t, srv.URL), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	base := time.Now()
	clock := base
	c.now = func() time.Time { return clock }

	send := func() {
		t.Helper()
		if err := c.Send(context.Background(), iosSub("1", "tok"), push.Message{Title: "t", Body: "b"}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	send()
	clock = base.Add(49 * time.Minute)
	send()
	if auths[1] != auths[0] {
		t.Fatal("token must be reused while within its lifetime")
	}

	clock = base.Add(51 * time.Minute)
	send()
	if auths[2] == auths[0] {
		t.Fatal("token older than its lifetime must be re-minted")
	}
	if !c.mintedAt.Equal(clock) {
		t.Fatalf("mint time not updated: %v", c.mintedAt)
	}

	// The refreshed token is cached in turn.
	send()
	if auths[3] != auths[2] {
		t.Fatal("refreshed token must be reused")
	}
}

func TestClient_SendErrors(t *testing.T) {
	t.Run("rejection is a per-subscriber error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		c, err := New(testConfig(t, srv.URL), zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Send(context.Background(), iosSub("1", "tok"), push.Message{}); err == nil {
			t.Fatal("expected error for non-2xx response")
		}
	})

	t.Run("missing key is ErrPushNotConfigured", func(t *testing.T) {
		c, err := New(Config{Timeout: time.Second}, zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Send(context.Background(), iosSub("1", "tok"), push.Message{}); !errors.Is(err, domain.ErrPushNotConfigured) {
			t.Fatalf("expected ErrPushNotConfigured, got %v", err)
		}
	})

	t.Run("garbage PEM fails construction", func(t *testing.T) {
		if _, err := New(Config{KeyPEM: "not pem"}, zap.NewNop()); err == nil {
			t.Fatal("expected error for invalid key PEM")
		}
	})
}
