package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/observability"
	"github.com/tobyhearn/newshound/internal/types"
)

// Response is the outcome of one successful fetch.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Client is a rate-limited HTTP fetcher with header rotation and
// denial backoff. The inter-request delay and backoff state are
// instance-local: concurrent callers sharing one Client serialize
// through it by design.
type Client struct {
	cfg     *config.FetcherConfig
	httpc   *http.Client
	profile headerProfile
	lastReq time.Time
	metrics *observability.Metrics
	logger  *slog.Logger

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// New creates a rate-limited fetcher. metrics may be nil.
func New(cfg *config.FetcherConfig, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		httpc:   newHTTPClient(cfg.RequestTimeout),
		profile: randomProfile(),
		metrics: metrics,
		logger:  logger.With("component", "fetcher"),
		sleep:   time.Sleep,
	}
}

// newHTTPClient builds a fresh client with its own cookie jar. Denial
// retries call this again so each retry presents a clean session.
func newHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableCompression:  true, // decompression handled here, including brotli
		},
		Jar:     jar,
		Timeout: timeout,
	}
}

// Get fetches a URL, honoring the inter-request delay and retrying
// access denials with escalating backoff on a fresh session each time.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	c.waitTurn()

	if rand.Float64() < c.cfg.RotateChance {
		c.profile = rotatedProfile(c.profile)
	}

	resp, err := c.do(ctx, rawURL, c.httpc, c.profile, false)
	if err != nil {
		return nil, err
	}

	for attempt := 1; resp.StatusCode == http.StatusForbidden && attempt <= c.cfg.MaxRetries; attempt++ {
		if c.metrics != nil {
			c.metrics.FetchDenials.Add(1)
			c.metrics.FetchRetries.Add(1)
		}
		delay := c.backoffDelay(attempt)
		c.logger.Warn("access denied, retrying with fresh session",
			"url", rawURL, "attempt", attempt, "delay", delay)
		c.sleep(delay)

		// Fresh client and rotated profile to shed the fingerprint of
		// the denied session.
		c.httpc = newHTTPClient(c.cfg.RequestTimeout)
		c.profile = rotatedProfile(c.profile)

		resp, err = c.do(ctx, rawURL, c.httpc, c.profile, true)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode == http.StatusForbidden {
		// Still denied after every fresh-session retry.
		if c.metrics != nil {
			c.metrics.FetchesFailed.Add(1)
		}
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: denied %d times", types.ErrMaxRetries, c.cfg.MaxRetries+1),
			Retryable:  false,
		}
	}

	if resp.StatusCode >= 400 {
		if c.metrics != nil {
			c.metrics.FetchesFailed.Add(1)
		}
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
			Retryable:  resp.StatusCode >= 500,
		}
	}

	if len(resp.Body) == 0 {
		if c.metrics != nil {
			c.metrics.FetchesFailed.Add(1)
		}
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        types.ErrEmptyResponse,
			Retryable:  true,
		}
	}

	return resp, nil
}

// waitTurn sleeps out the remainder of a randomized inter-request
// delay measured from the previous request.
func (c *Client) waitTurn() {
	if c.cfg.MaxDelay <= 0 {
		c.lastReq = time.Now()
		return
	}
	span := c.cfg.MaxDelay - c.cfg.MinDelay
	delay := c.cfg.MinDelay
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	if elapsed := time.Since(c.lastReq); elapsed < delay {
		c.sleep(delay - elapsed)
	}
	c.lastReq = time.Now()
}

// backoffDelay scales with the attempt number plus jitter, so
// consecutive denial retries wait strictly longer each time.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.cfg.RetryBaseDelay
	if base <= 0 {
		base = time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base*time.Duration(attempt) + jitter
}

func (c *Client) do(ctx context.Context, rawURL string, httpc *http.Client, profile headerProfile, retry bool) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}
	profile.apply(req)
	if retry {
		applyRetryHints(req)
	}

	if c.metrics != nil {
		c.metrics.FetchesTotal.Add(1)
	}

	start := time.Now()
	httpResp, err := httpc.Do(req)
	duration := time.Since(start)
	if err != nil {
		if c.metrics != nil {
			c.metrics.FetchesFailed.Add(1)
		}
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	var reader io.Reader = httpResp.Body
	if c.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, c.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}

	if c.metrics != nil {
		c.metrics.BytesDownloaded.Add(int64(len(body)))
	}

	c.logger.Debug("fetch complete",
		"url", rawURL,
		"status", httpResp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return &Response{
		URL:        rawURL,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Duration:   duration,
	}, nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
// Covers timeouts, connection resets, unexpected EOF, and connection refused.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if netErr, ok := err.(net.Error); ok {
		if netErr.Timeout() {
			return true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}
