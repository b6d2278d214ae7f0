package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ThumbnailCache maps search keys to resolved image URLs. Entries are never
// evicted; every Put rewrites the whole file before returning.
type ThumbnailCache struct {
	logger  *zap.Logger
	fs      afero.Fs
	path    string
	mu      sync.RWMutex
	entries map[string]string
}

// Entry is a single cached key/URL pair.
type Entry struct {
	Key string `json:"search_key"`
	URL string `json:"image"`
}

// LoadThumbnailCache reads the cache file, creating an empty one if needed.
// A broken file is logged and treated as empty; the next Put overwrites it.
func LoadThumbnailCache(fs afero.Fs, path string, logger *zap.Logger) *ThumbnailCache {
	c := &ThumbnailCache{
		logger:  logger,
		fs:      fs,
		path:    path,
		entries: make(map[string]string),
	}

	found, err := exists(fs, path)
	if err != nil {
		logger.Error("Failed to stat thumbnail cache, using empty cache",
			zap.String("path", path), zap.Error(err))
		return c
	}

	if !found {
		logger.Info("Creating empty thumbnail cache file", zap.String("path", path))
		if err := writeMap(fs, path, c.entries); err != nil {
			logger.Error("Failed to create thumbnail cache file", zap.Error(err))
		}
		return c
	}

	entries, err := readMap(fs, path)
	if err != nil {
		logger.Error("Failed to load thumbnail cache, using empty cache", zap.Error(err))
		return c
	}

	c.entries = entries
	logger.Info("Thumbnail cache loaded", zap.String("path", path), zap.Int("entries", len(entries)))
	return c
}

// Get returns the cached URL for a key.
func (c *ThumbnailCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Put adds an entry and persists the full mapping. A write failure is logged;
// the in-memory entry stays valid for the rest of the run.
func (c *ThumbnailCache) Put(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = url
	if err := writeMap(c.fs, c.path, c.entries); err != nil {
		c.logger.Error("Could not write thumbnail cache", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("Thumbnail cached", zap.String("key", key), zap.String("url", url))
}

// Entries returns all cached entries sorted by key.
func (c *ThumbnailCache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for k, v := range c.entries {
		out = append(out, Entry{Key: k, URL: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Forget removes an entry and persists the result. It is meant for offline
// use from the CLI, e.g. to drop a thumbnail that matched the wrong title.
func (c *ThumbnailCache) Forget(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return fmt.Errorf("no cached thumbnail for %q", key)
	}
	delete(c.entries, key)
	return writeMap(c.fs, c.path, c.entries)
}
