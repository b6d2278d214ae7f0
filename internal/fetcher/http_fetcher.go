package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	_maxPageSize = 5 * 1024 * 1024 // 5 MB

	// DefaultUserAgent mimics a desktop browser; the title site serves a
	// reduced page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// HTTPFetcher downloads HTML pages and parses them into goquery documents
type HTTPFetcher struct {
	logger  *zap.Logger
	client  *http.Client
	headers http.Header
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(f *HTTPFetcher) {
		f.headers.Set(key, value)
	}
}

// WithHTTPClient replaces the underlying client (for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// NewHTTPFetcher creates a new HTML fetcher instance
func NewHTTPFetcher(logger *zap.Logger, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		logger: logger,
		client: &http.Client{
			Timeout: 5 * time.Second, // Essential to prevent blocking the poll loop
		},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchDocument downloads the page at url and parses it as HTML
func (f *HTTPFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range f.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("url is not an html page: %s", ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, _maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}

	f.logger.Debug("Page fetched successfully", zap.String("url", url))
	return doc, nil
}
