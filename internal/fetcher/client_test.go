package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testConfig() *config.FetcherConfig {
	return &config.FetcherConfig{
		RequestTimeout: 5 * time.Second,
		MinDelay:       0,
		MaxDelay:       0,
		MaxRetries:     3,
		RetryBaseDelay: 10 * time.Millisecond,
		MaxBodySize:    1 << 20,
	}
}

// newTestClient returns a client whose sleeps are recorded instead of
// executed.
func newTestClient(cfg *config.FetcherConfig) (*Client, *[]time.Duration) {
	c := New(cfg, nil, testLogger)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a browser User-Agent header")
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c, _ := newTestClient(testConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "<html>ok</html>" {
		t.Errorf("unexpected body %q", resp.Body)
	}
}

func TestBackoffOnDenial(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	c, slept := newTestClient(testConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(resp.Body) != "finally" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if got := hits.Load(); got != 4 {
		t.Errorf("expected exactly 4 requests, got %d", got)
	}

	// One backoff sleep per denial, strictly increasing.
	if len(*slept) != 3 {
		t.Fatalf("expected 3 backoff sleeps, got %d", len(*slept))
	}
	for i := 1; i < len(*slept); i++ {
		if (*slept)[i] <= (*slept)[i-1] {
			t.Errorf("backoff delays not increasing: %v", *slept)
		}
	}
}

func TestDenialExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := newTestClient(testConfig())
	_, err := c.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}

	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", fe.StatusCode)
	}
	if !errors.Is(err, types.ErrMaxRetries) {
		t.Errorf("expected ErrMaxRetries in chain, got %v", err)
	}
	if fe.IsRetryable() {
		t.Error("exhausted retries must not report retryable")
	}
	if got := hits.Load(); got != 4 { // initial + 3 retries
		t.Errorf("expected 4 requests, got %d", got)
	}
}

func TestEmptyBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(testConfig())
	_, err := c.Get(context.Background(), srv.URL)
	if !errors.Is(err, types.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestRetryRequestsCarryHints(t *testing.T) {
	var sawReferer atomic.Bool
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Referer") != "" {
			sawReferer.Store(true)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient(testConfig())
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if !sawReferer.Load() {
		t.Error("expected retry request to carry a Referer hint")
	}
}

func TestNotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, _ := newTestClient(testConfig())
	_, err := c.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 404 {
		t.Errorf("expected FetchError with status 404, got %v", err)
	}
}

func TestGzipDecompression(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte("compressed content"))
		zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c, _ := newTestClient(testConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(resp.Body) != "compressed content" {
		t.Errorf("expected decompressed body, got %q", resp.Body)
	}
}

func TestWaitTurnEnforcesDelay(t *testing.T) {
	cfg := testConfig()
	cfg.MinDelay = 50 * time.Millisecond
	cfg.MaxDelay = 60 * time.Millisecond

	c, slept := newTestClient(cfg)
	c.lastReq = time.Now()
	c.waitTurn()

	if len(*slept) != 1 {
		t.Fatalf("expected one sleep, got %d", len(*slept))
	}
	if (*slept)[0] > cfg.MaxDelay {
		t.Errorf("slept longer than max delay: %v", (*slept)[0])
	}
}

func TestBackoffDelayEscalates(t *testing.T) {
	c, _ := newTestClient(testConfig())
	for i := 1; i < 5; i++ {
		lo, hi := c.backoffDelay(i), c.backoffDelay(i+1)
		if hi <= lo-c.cfg.RetryBaseDelay/2 {
			t.Errorf("attempt %d delay %v not escalating past %v", i+1, hi, lo)
		}
	}
}
