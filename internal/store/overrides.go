package store

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// exampleOverrides seeds a freshly created overrides file.
var exampleOverrides = map[string]string{
	"Example Show Name":  "https://www.imdb.com/title/tt0944947/",
	"Example Movie Name": "https://i.imgur.com/your_image.jpg",
}

// Overrides is the user-edited mapping of search key to an image URL or a
// title-page URL. It is read once; edits made while the daemon runs are only
// picked up after a restart.
type Overrides struct {
	entries map[string]string
}

// LoadOverrides reads the overrides file, creating it with example entries if
// it does not exist. A broken file is logged and treated as empty.
func LoadOverrides(fs afero.Fs, path string, logger *zap.Logger) *Overrides {
	found, err := exists(fs, path)
	if err != nil {
		logger.Error("Failed to stat overrides file, using no overrides",
			zap.String("path", path), zap.Error(err))
		return &Overrides{entries: map[string]string{}}
	}

	if !found {
		logger.Info("Creating default overrides file", zap.String("path", path))
		if err := writeMap(fs, path, exampleOverrides); err != nil {
			logger.Error("Failed to create overrides file", zap.Error(err))
		}
		entries := make(map[string]string, len(exampleOverrides))
		for k, v := range exampleOverrides {
			entries[k] = v
		}
		return &Overrides{entries: entries}
	}

	entries, err := readMap(fs, path)
	if err != nil {
		logger.Error("Failed to load overrides, using no overrides", zap.Error(err))
		return &Overrides{entries: map[string]string{}}
	}

	logger.Info("Overrides loaded", zap.String("path", path), zap.Int("entries", len(entries)))
	return &Overrides{entries: entries}
}

// Lookup returns the override for an exact, case-sensitive search key.
func (o *Overrides) Lookup(key string) (string, bool) {
	v, ok := o.entries[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Len returns the number of overrides.
func (o *Overrides) Len() int {
	return len(o.entries)
}
