// Package scraper fetches and parses HTML pages for lookup commands.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	InitialDelay      time.Duration
}

// Client is an HTTP client with outbound rate limiting and retries.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	initialDelay time.Duration
}

// NewClient creates a Client. Zero options fall back to conservative defaults.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
				// Decompression is handled in GetDocument.
				DisableCompression: true,
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		maxRetries:   opts.MaxRetries,
		initialDelay: opts.InitialDelay,
	}
}

// Get performs a GET request with rate limiting and retries. 4xx responses
// other than 429 are not retried. The caller closes the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response

	err := RetryWithBackoff(ctx, c.maxRetries, c.initialDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &permanentError{err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &permanentError{err: fmt.Errorf("failed to create request: %w", err)}
		}
		req.Header.Set("User-Agent", uarand.GetRandom())
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Encoding", "gzip")

		r, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			_ = r.Body.Close()
			return statusError(url, r.StatusCode)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetDocument fetches url and parses the body as HTML.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func statusError(url string, code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited for %s: status %d", url, code)
	case code >= 500:
		return fmt.Errorf("server error for %s: status %d", url, code)
	case code >= 400:
		return &permanentError{err: &StatusError{URL: url, Code: code}}
	default:
		return fmt.Errorf("unexpected status for %s: %d", url, code)
	}
}

// StatusError is a non-retryable HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client error for %s: status %d", e.URL, e.Code)
}
