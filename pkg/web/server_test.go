package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ohaddad/shopsnap/pkg/imghost"
	"github.com/ohaddad/shopsnap/pkg/storage"
	"github.com/ohaddad/shopsnap/pkg/storage/memory"
)

// brokenStore fails every health check.
type brokenStore struct{}

var _ storage.Store = (*brokenStore)(nil)

func (b *brokenStore) Language(ctx context.Context, userID int64) (string, error) {
	return "", storage.ErrNotFound
}
func (b *brokenStore) SetLanguage(ctx context.Context, userID int64, lang string) error {
	return nil
}
func (b *brokenStore) RecordRecognition(ctx context.Context, rec *storage.Recognition) error {
	return nil
}
func (b *brokenStore) RecentRecognitions(ctx context.Context, limit int) ([]*storage.Recognition, error) {
	return nil, nil
}
func (b *brokenStore) HealthCheck(ctx context.Context) error {
	return errors.New("connection refused")
}
func (b *brokenStore) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestImages(t *testing.T, baseURL string) *imghost.SelfServe {
	t.Helper()
	images, err := imghost.NewSelfServe(imghost.SelfServeConfig{
		PublicBaseURL: baseURL,
		SigningKey:    []byte("test-signing-key"),
	})
	if err != nil {
		t.Fatalf("NewSelfServe failed: %v", err)
	}
	return images
}

func TestHealthzOK(t *testing.T) {
	srv := NewServer(WithStore(memory.New(0)), WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want \"ok\"", body["status"])
	}
}

func TestHealthzDegradedStorage(t *testing.T) {
	srv := NewServer(WithStore(&brokenStore{}), WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "degraded" {
		t.Errorf("status field = %q, want \"degraded\"", body["status"])
	}
}

func TestHealthzWithoutStore(t *testing.T) {
	srv := NewServer(WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 with no store wired", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "shopsnap_") {
		t.Error("metrics output does not expose shopsnap_ collectors")
	}
}

func TestImageRoundTrip(t *testing.T) {
	images := newTestImages(t, "https://bot.example.com")
	srv := NewServer(WithImages(images), WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	payload := []byte("jpeg-payload")
	url, err := images.Upload(context.Background(), payload, "image/jpeg", "photo.jpg")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	token := strings.TrimPrefix(url, "https://bot.example.com/i/")

	resp, err := http.Get(ts.URL + "/i/" + token)
	if err != nil {
		t.Fatalf("GET /i/{token} failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(payload) {
		t.Errorf("body = %q, want the uploaded payload", body)
	}
}

func TestImageUnknownToken(t *testing.T) {
	images := newTestImages(t, "https://bot.example.com")
	srv := NewServer(WithImages(images), WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/i/not-a-real-token")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a bogus token", resp.StatusCode)
	}
}

func TestImageRouteWithoutImages(t *testing.T) {
	srv := NewServer(WithLogger(testLogger()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/i/some-token")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when selfserve is disabled", resp.StatusCode)
	}
}

func TestServeOnStopsOnContextCancel(t *testing.T) {
	srv := NewServer(WithLogger(testLogger()), WithShutdownTimeout(time.Second))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeOn(ctx, ln) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeOn returned %v, want nil after graceful stop", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}
