// Package wttr is a client for the wttr.in weather service. Every call
// returns a usable payload: live data when the service answers, cached data
// while it is fresh, and deterministic mock data when the service fails or
// mock mode is on. Provenance is reported through ResponseMetadata.
package wttr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/fetchweather/cache"
)

const (
	DefaultBaseURL       = "https://wttr.in"
	DefaultTimeout       = 10 * time.Second
	DefaultCacheDuration = 600 * time.Second

	// UserAgent must look like curl, otherwise the service answers with HTML
	UserAgent = "curl/8.5.0 fetchweather/0.1"

	maxBodyBytes    = 10 << 20
	maxErrBodyBytes = 512
)

// Recorder receives resolution events, typically to export metrics
type Recorder interface {
	ObserveResolution(source Source, format Format)
	ObserveFallback(errorType string)
	ObserveUpstream(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveResolution(Source, Format) {}
func (nopRecorder) ObserveFallback(string)           {}
func (nopRecorder) ObserveUpstream(time.Duration)    {}

// Client resolves weather requests. It owns its cache, mock mode and ttl,
// so several independent clients can live in one process.
type Client struct {
	http     *http.Client
	rawBase  string
	baseURL  *url.URL
	timeout  time.Duration
	cache    cache.Store
	logger   zerolog.Logger
	recorder Recorder
	now      func() time.Time

	mock atomic.Bool
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) { c.rawBase = raw }
}

// WithTimeout bounds each upstream request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCache replaces the default in-memory store
func WithCache(store cache.Store) Option {
	return func(c *Client) { c.cache = store }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithClock replaces time.Now for metadata timestamps, mock dates and the
// expiry of the default in-memory cache. A cache given through WithCache
// keeps its own clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithMockMode starts the client with mock mode on or off
func WithMockMode(enabled bool) Option {
	return func(c *Client) { c.mock.Store(enabled) }
}

// New creates a client. Without options it talks to DefaultBaseURL and
// caches in memory for DefaultCacheDuration.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:     http.DefaultClient,
		rawBase:  DefaultBaseURL,
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	u, err := url.Parse(c.rawBase)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", c.rawBase)
	}
	c.baseURL = u

	if c.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", c.timeout)
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryCache(DefaultCacheDuration, cache.WithClock(c.now))
	}
	return c, nil
}

// Get is GetWeather with the request built from options
func (c *Client) Get(ctx context.Context, location string, opts ...RequestOption) (*Result, error) {
	return c.GetWeather(ctx, NewRequest(location, opts...))
}

// GetWeather resolves req through mock mode, the cache, the live service
// and finally the mock fallback. Upstream failures never produce an error;
// only invalid requests do.
func (c *Client) GetWeather(ctx context.Context, req Request) (*Result, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	reqURL := req.buildURL(c.baseURL)
	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("url", reqURL).
		Str("format", string(req.Format)).
		Logger()

	if c.MockMode() {
		logger.Debug().Msg("mock mode enabled, skipping cache and upstream")
		c.recorder.ObserveResolution(SourceMock, req.Format)
		return c.result(req, mockPayload(req, c.now()), &ResponseMetadata{
			IsMock:    true,
			URL:       reqURL,
			Timestamp: c.now(),
		}), nil
	}

	key := req.fingerprint()
	if entry, ok := c.cache.Read(ctx, key); ok {
		payload, err := render(entry.Body, req.Format)
		if err == nil {
			logger.Debug().Str("key", key).Msg("cache hit")
			c.recorder.ObserveResolution(SourceCached, req.Format)
			return c.result(req, payload, &ResponseMetadata{
				IsRealData: true,
				IsCached:   true,
				URL:        reqURL,
				Timestamp:  c.now(),
			}), nil
		}
		logger.Warn().Err(err).Str("key", key).Msg("cached body does not render, refetching")
	}

	body, contentType, status, err := c.fetch(ctx, reqURL)
	if err != nil {
		return c.fallback(logger, req, reqURL, err), nil
	}

	payload, err := render(body, req.Format)
	if err != nil {
		return c.fallback(logger, req, reqURL, &DecodeError{URL: reqURL, Format: req.Format, StatusCode: status, Err: err}), nil
	}

	if err := c.cache.Write(ctx, key, &cache.Entry{URL: reqURL, ContentType: contentType, Body: body}); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to write cache entry")
	}

	logger.Debug().Int("status_code", status).Str("key", key).Msg("fetched live data")
	c.recorder.ObserveResolution(SourceLive, req.Format)
	return c.result(req, payload, &ResponseMetadata{
		IsRealData: true,
		StatusCode: status,
		URL:        reqURL,
		Timestamp:  c.now(),
	}), nil
}

// SetCacheDuration changes the ttl and returns the previous one, so tests
// and callers can restore it afterwards. Zero disables caching.
func (c *Client) SetCacheDuration(d time.Duration) time.Duration {
	return c.cache.SetTTL(d)
}

// CacheDuration returns the current ttl
func (c *Client) CacheDuration() time.Duration {
	return c.cache.TTL()
}

// SetMockMode makes every following call return mock data without
// touching the cache or the network.
func (c *Client) SetMockMode(enabled bool) {
	c.mock.Store(enabled)
}

// MockMode reports whether mock mode is on
func (c *Client) MockMode() bool {
	return c.mock.Load()
}

// ClearCache drops every cached response
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// fetch performs the single upstream GET. Errors are *NetworkError or
// *StatusError; status is the response code when one was received.
func (c *Client) fetch(ctx context.Context, reqURL string) (body []byte, contentType string, status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", 0, &NetworkError{URL: reqURL, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recorder.ObserveUpstream(time.Since(start))
		return nil, "", 0, newNetworkError(reqURL, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.recorder.ObserveUpstream(time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrBodyBytes {
			body = body[:maxErrBodyBytes]
		}
		return nil, "", resp.StatusCode, &StatusError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	if err != nil {
		return nil, "", resp.StatusCode, newNetworkError(reqURL, err)
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// fallback turns an upstream failure into mock data plus metadata
// describing what went wrong.
func (c *Client) fallback(logger zerolog.Logger, req Request, reqURL string, cause error) *Result {
	errorType, status := classify(cause)
	logger.Warn().
		Err(cause).
		Str("error_type", errorType).
		Int("status_code", status).
		Msg("upstream request failed, serving mock data")

	c.recorder.ObserveFallback(errorType)
	c.recorder.ObserveResolution(SourceMock, req.Format)
	return c.result(req, mockPayload(req, c.now()), &ResponseMetadata{
		IsMock:       true,
		StatusCode:   status,
		ErrorType:    errorType,
		ErrorMessage: cause.Error(),
		URL:          reqURL,
		Timestamp:    c.now(),
	})
}

func (c *Client) result(req Request, payload Payload, meta *ResponseMetadata) *Result {
	r := &Result{Payload: payload}
	if req.WithMetadata {
		r.Metadata = meta
	}
	return r
}
