package domain

import "context"

// StatusSource polls the local media player.
//
//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/genricoloni/mpcpresence/internal/domain StatusSource,Publisher,TitleLookup
type StatusSource interface {
	// Poll returns the current playback status.
	// It returns ErrNoSession when nothing is loaded or the player is not running;
	// any other error means the response could not be understood.
	Poll(ctx context.Context) (*MediaStatus, error)
}

// Publisher pushes presence payloads to the status service.
type Publisher interface {
	// Connect opens the connection to the service. It must succeed before the loop starts.
	Connect(ctx context.Context) error

	// Update replaces the published presence
	Update(ctx context.Context, activity Activity) error

	// Clear removes the published presence
	Clear(ctx context.Context) error

	// Close releases the connection
	Close() error
}

// TitleLookup finds title pages and their primary image on a remote site.
type TitleLookup interface {
	// Search returns the first result that links to a title page.
	// ErrNotFound means the search ran and had no usable result.
	Search(ctx context.Context, title string) (SearchHit, error)

	// Scrape returns the primary image URL of a title page.
	// ErrNotFound means the page loaded but had no image element.
	Scrape(ctx context.Context, pageURL string) (string, error)
}

// OverrideStore is the user-maintained mapping of search key to image or page URL.
type OverrideStore interface {
	Lookup(key string) (string, bool)
}

// ThumbnailCache is the persisted mapping of search key to resolved image URL.
type ThumbnailCache interface {
	Get(key string) (string, bool)

	// Put stores the URL and persists the whole mapping before returning
	Put(key, url string)
}

// Normalizer derives display and search strings from a media filename.
type Normalizer interface {
	Normalize(filename string) NormalizedTitle
}

// Resolver turns a search key into an image reference. It never fails: when
// nothing is found it returns the fallback image key.
type Resolver interface {
	Resolve(ctx context.Context, searchKey string) string
}
