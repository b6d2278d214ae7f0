// Package imdb looks up title pages and their poster images on IMDb.
package imdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/genricoloni/mpcpresence/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://www.imdb.com"

	resultLinkSelector = "a.ipc-metadata-list-summary-item__t"
	posterSelector     = "img.ipc-image"
	titlePathPrefix    = "/title/"
)

// DocumentFetcher loads and parses an HTML page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Client implements domain.TitleLookup against the IMDb website.
type Client struct {
	logger  *zap.Logger
	fetcher DocumentFetcher
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates a new IMDb lookup client.
func NewClient(logger *zap.Logger, fetcher DocumentFetcher, opts ...Option) *Client {
	c := &Client{
		logger:  logger,
		fetcher: fetcher,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries the find page and returns the first result linking to a title page.
func (c *Client) Search(ctx context.Context, title string) (domain.SearchHit, error) {
	if title == "" {
		return domain.SearchHit{}, domain.ErrNotFound
	}

	searchURL := fmt.Sprintf("%s/find?q=%s", c.baseURL, url.QueryEscape(title))
	doc, err := c.fetcher.FetchDocument(ctx, searchURL)
	if err != nil {
		return domain.SearchHit{}, fmt.Errorf("search %q: %w", title, err)
	}

	var hit domain.SearchHit
	doc.Find(resultLinkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || !strings.HasPrefix(href, titlePathPrefix) {
			return true
		}
		hit = domain.SearchHit{
			PageURL: c.baseURL + href,
			Title:   strings.TrimSpace(s.Text()),
		}
		return false
	})

	if hit.PageURL == "" {
		return domain.SearchHit{}, fmt.Errorf("search %q: %w", title, domain.ErrNotFound)
	}

	c.logger.Debug("Search result found",
		zap.String("query", title),
		zap.String("page", hit.PageURL),
		zap.String("title", hit.Title))
	return hit, nil
}

// Scrape returns the primary image of a title page.
func (c *Client) Scrape(ctx context.Context, pageURL string) (string, error) {
	doc, err := c.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("scrape %s: %w", pageURL, err)
	}

	src, ok := doc.Find(posterSelector).First().Attr("src")
	if !ok || src == "" {
		return "", fmt.Errorf("scrape %s: %w", pageURL, domain.ErrNotFound)
	}

	c.logger.Info("Scraped thumbnail", zap.String("page", pageURL))
	return src, nil
}
