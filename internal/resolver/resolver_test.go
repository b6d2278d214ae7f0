package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/genricoloni/mpcpresence/internal/domain/mocks"
	"github.com/genricoloni/mpcpresence/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const fallback = "mpc_logo_large"

type fixture struct {
	fs       afero.Fs
	lookup   *mocks.MockTitleLookup
	cache    *store.ThumbnailCache
	resolver *Resolver
}

func newFixture(t *testing.T, overrides, cache string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "overrides.json", []byte(overrides), 0o644))
	require.NoError(t, afero.WriteFile(fs, "cache.json", []byte(cache), 0o644))

	ctrl := gomock.NewController(t)
	lookup := mocks.NewMockTitleLookup(ctrl)

	o := store.LoadOverrides(fs, "overrides.json", zap.NewNop())
	c := store.LoadThumbnailCache(fs, "cache.json", zap.NewNop())

	return &fixture{
		fs:       fs,
		lookup:   lookup,
		cache:    c,
		resolver: New(zap.NewNop(), o, c, lookup, fallback),
	}
}

func TestResolve_EmptyKeyUsesFallback(t *testing.T) {
	f := newFixture(t, `{"": "https://x/y.jpg"}`, `{"": "https://x/z.jpg"}`)

	assert.Equal(t, fallback, f.resolver.Resolve(context.Background(), ""))
}

func TestResolve_OverrideWinsOverCacheAndRemote(t *testing.T) {
	f := newFixture(t,
		`{"Show": "https://img.example.com/override.png"}`,
		`{"Show": "https://img.example.com/cached.jpg"}`)
	// No expectations on the lookup mock: any remote call fails the test.

	got := f.resolver.Resolve(context.Background(), "Show")
	assert.Equal(t, "https://img.example.com/override.png", got)
}

func TestResolve_OverrideImageExtensionIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, `{"Show": "https://img.example.com/poster.WEBP"}`, `{}`)

	assert.Equal(t, "https://img.example.com/poster.WEBP", f.resolver.Resolve(context.Background(), "Show"))
}

func TestResolve_OverrideTitlePageIsScraped(t *testing.T) {
	f := newFixture(t, `{"Show": "https://www.imdb.com/title/tt0944947/"}`, `{}`)
	f.lookup.EXPECT().
		Scrape(gomock.Any(), "https://www.imdb.com/title/tt0944947/").
		Return("https://img.example.com/got.jpg", nil)

	assert.Equal(t, "https://img.example.com/got.jpg", f.resolver.Resolve(context.Background(), "Show"))
	// Override results are not cached.
	_, ok := f.cache.Get("Show")
	assert.False(t, ok)
}

func TestResolve_FailedOverrideScrapeFallsThroughToCache(t *testing.T) {
	f := newFixture(t,
		`{"Show": "https://www.imdb.com/title/tt0944947/"}`,
		`{"Show": "https://img.example.com/cached.jpg"}`)
	f.lookup.EXPECT().
		Scrape(gomock.Any(), gomock.Any()).
		Return("", errors.New("timeout"))

	assert.Equal(t, "https://img.example.com/cached.jpg", f.resolver.Resolve(context.Background(), "Show"))
}

func TestResolve_InvalidOverrideIsSkipped(t *testing.T) {
	f := newFixture(t,
		`{"Show": "https://example.com/some/page"}`,
		`{"Show": "https://img.example.com/cached.jpg"}`)

	assert.Equal(t, "https://img.example.com/cached.jpg", f.resolver.Resolve(context.Background(), "Show"))
}

func TestResolve_CacheHitMakesNoNetworkCall(t *testing.T) {
	f := newFixture(t, `{}`, `{"Movie": "https://img.example.com/cached.jpg"}`)

	assert.Equal(t, "https://img.example.com/cached.jpg", f.resolver.Resolve(context.Background(), "Movie"))
}

func TestResolve_RemoteResultIsWrittenThrough(t *testing.T) {
	f := newFixture(t, `{}`, `{}`)
	gomock.InOrder(
		f.lookup.EXPECT().Search(gomock.Any(), "Show Name").
			Return(domain.SearchHit{PageURL: "https://www.imdb.com/title/tt1/", Title: "Show Name"}, nil),
		f.lookup.EXPECT().Scrape(gomock.Any(), "https://www.imdb.com/title/tt1/").
			Return("https://img.example.com/remote.jpg", nil),
	)

	got := f.resolver.Resolve(context.Background(), "Show Name")
	assert.Equal(t, "https://img.example.com/remote.jpg", got)

	reloaded := store.LoadThumbnailCache(f.fs, "cache.json", zap.NewNop())
	v, ok := reloaded.Get("Show Name")
	assert.True(t, ok)
	assert.Equal(t, "https://img.example.com/remote.jpg", v)
}

func TestResolve_RemoteFailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mocks.MockTitleLookup)
	}{
		{
			name: "Search not found",
			setup: func(m *mocks.MockTitleLookup) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).Return(domain.SearchHit{}, domain.ErrNotFound)
			},
		},
		{
			name: "Search transient failure",
			setup: func(m *mocks.MockTitleLookup) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).Return(domain.SearchHit{}, errors.New("network error"))
			},
		},
		{
			name: "Scrape finds no image",
			setup: func(m *mocks.MockTitleLookup) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).
					Return(domain.SearchHit{PageURL: "https://www.imdb.com/title/tt2/"}, nil)
				m.EXPECT().Scrape(gomock.Any(), gomock.Any()).Return("", domain.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, `{}`, `{}`)
			tt.setup(f.lookup)

			assert.Equal(t, fallback, f.resolver.Resolve(context.Background(), "Unknown Title"))
			assert.Empty(t, f.cache.Entries())
		})
	}
}

func TestResolve_MismatchedResultIsStillUsed(t *testing.T) {
	f := newFixture(t, `{}`, `{}`)
	f.lookup.EXPECT().Search(gomock.Any(), "Dark").
		Return(domain.SearchHit{PageURL: "https://www.imdb.com/title/tt3/", Title: "The Dark Knight Rises"}, nil)
	f.lookup.EXPECT().Scrape(gomock.Any(), gomock.Any()).Return("https://img.example.com/batman.jpg", nil)

	assert.Equal(t, "https://img.example.com/batman.jpg", f.resolver.Resolve(context.Background(), "Dark"))
}

func TestIsImageURL(t *testing.T) {
	assert.True(t, isImageURL("https://i.imgur.com/a.jpg"))
	assert.True(t, isImageURL("https://i.imgur.com/a.JPEG"))
	assert.True(t, isImageURL("https://i.imgur.com/a.png"))
	assert.False(t, isImageURL("https://www.imdb.com/title/tt0944947/"))
	assert.False(t, isImageURL("https://i.imgur.com/a.gif"))
}
