// Package resolver implements the thumbnail resolution waterfall:
// override, then cache, then remote lookup, then the fallback image key.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/hbollon/go-edlib"
	"go.uber.org/zap"
)

// Results below this similarity to the search key are logged as likely mismatches.
const mismatchThreshold = 0.5

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// stage is one step of the waterfall. It returns domain.ErrNotFound when it
// has definitively nothing for the key and any other error on transient failure.
type stage struct {
	name    string
	resolve func(ctx context.Context, key string) (string, error)
}

// Resolver implements domain.Resolver.
type Resolver struct {
	logger        *zap.Logger
	overrides     domain.OverrideStore
	cache         domain.ThumbnailCache
	lookup        domain.TitleLookup
	fallbackImage string
	stages        []stage
}

// New creates a resolver. fallbackImage is returned whenever nothing resolves.
func New(
	logger *zap.Logger,
	overrides domain.OverrideStore,
	cache domain.ThumbnailCache,
	lookup domain.TitleLookup,
	fallbackImage string,
) *Resolver {
	r := &Resolver{
		logger:        logger,
		overrides:     overrides,
		cache:         cache,
		lookup:        lookup,
		fallbackImage: fallbackImage,
	}
	r.stages = []stage{
		{name: "override", resolve: r.fromOverride},
		{name: "cache", resolve: r.fromCache},
		{name: "remote", resolve: r.fromRemote},
	}
	return r
}

// Resolve returns an image URL for the search key, or the fallback image key.
func (r *Resolver) Resolve(ctx context.Context, searchKey string) string {
	if searchKey == "" {
		r.logger.Debug("Empty search key, using fallback image")
		return r.fallbackImage
	}

	for _, s := range r.stages {
		url, err := s.resolve(ctx, searchKey)
		if err == nil && url != "" {
			r.logger.Info("Thumbnail resolved",
				zap.String("key", searchKey),
				zap.String("stage", s.name))
			return url
		}

		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("Thumbnail stage failed",
				zap.String("key", searchKey),
				zap.String("stage", s.name),
				zap.Error(err))
		}
	}

	r.logger.Info("No thumbnail found, using fallback image", zap.String("key", searchKey))
	return r.fallbackImage
}

func (r *Resolver) fromOverride(ctx context.Context, key string) (string, error) {
	value, ok := r.overrides.Lookup(key)
	if !ok {
		return "", domain.ErrNotFound
	}

	r.logger.Info("Found manual override", zap.String("key", key))
	switch {
	case isImageURL(value):
		return value, nil
	case isTitlePage(value):
		return r.lookup.Scrape(ctx, value)
	default:
		r.logger.Warn("Invalid override URL", zap.String("key", key), zap.String("value", value))
		return "", domain.ErrNotFound
	}
}

func (r *Resolver) fromCache(_ context.Context, key string) (string, error) {
	url, ok := r.cache.Get(key)
	if !ok {
		return "", domain.ErrNotFound
	}
	return url, nil
}

// fromRemote searches, scrapes and writes a hit through to the cache.
// Failures are never cached so a later run can retry.
func (r *Resolver) fromRemote(ctx context.Context, key string) (string, error) {
	r.logger.Info("No override or cache hit, searching online", zap.String("key", key))

	hit, err := r.lookup.Search(ctx, key)
	if err != nil {
		return "", err
	}
	r.warnOnMismatch(key, hit)

	url, err := r.lookup.Scrape(ctx, hit.PageURL)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", fmt.Errorf("empty image for %s: %w", hit.PageURL, domain.ErrNotFound)
	}

	r.cache.Put(key, url)
	return url, nil
}

// warnOnMismatch flags a first result whose title differs a lot from the
// search key. The result is still used.
func (r *Resolver) warnOnMismatch(key string, hit domain.SearchHit) {
	if hit.Title == "" {
		return
	}
	sim, err := edlib.StringsSimilarity(strings.ToLower(key), strings.ToLower(hit.Title), edlib.Levenshtein)
	if err != nil || sim >= mismatchThreshold {
		return
	}
	r.logger.Warn("Search result title differs from search key",
		zap.String("key", key),
		zap.String("result", hit.Title),
		zap.Float32("similarity", sim))
}

func isImageURL(value string) bool {
	lower := strings.ToLower(value)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isTitlePage(value string) bool {
	return strings.Contains(value, "/title/tt")
}
