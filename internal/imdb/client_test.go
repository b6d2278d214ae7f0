package imdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/genricoloni/mpcpresence/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const searchPage = `<html><body><ul>
<li><a class="ipc-metadata-list-summary-item__t" href="/name/nm0000206/">Keanu Reeves</a></li>
<li><a class="ipc-metadata-list-summary-item__t" href="/title/tt0133093/?ref_=fn_al_tt_1"> The Matrix </a></li>
<li><a class="ipc-metadata-list-summary-item__t" href="/title/tt0234215/">The Matrix Reloaded</a></li>
</ul></body></html>`

const titlePage = `<html><body>
<div class="poster"><img class="ipc-image" src="https://m.media-amazon.com/images/M/matrix.jpg"/></div>
<img class="ipc-image" src="https://m.media-amazon.com/images/M/other.jpg"/>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := fetcher.NewHTTPFetcher(zap.NewNop(), fetcher.WithTimeout(time.Second))
	return NewClient(zap.NewNop(), f, WithBaseURL(server.URL))
}

func TestClient_Search(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/find", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(searchPage))
	})

	hit, err := c.Search(context.Background(), "The Matrix & Co")
	require.NoError(t, err)

	assert.Equal(t, "The Matrix & Co", gotQuery)
	assert.Equal(t, c.baseURL+"/title/tt0133093/?ref_=fn_al_tt_1", hit.PageURL)
	assert.Equal(t, "The Matrix", hit.Title)
}

func TestClient_Search_Failures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantNotFound bool
	}{
		{
			name:         "No title links",
			status:       http.StatusOK,
			body:         `<html><body><a class="ipc-metadata-list-summary-item__t" href="/name/nm1/">Someone</a></body></html>`,
			wantNotFound: true,
		},
		{
			name:         "Empty results",
			status:       http.StatusOK,
			body:         `<html><body><p>No results</p></body></html>`,
			wantNotFound: true,
		},
		{
			name:         "Server error is transient",
			status:       http.StatusInternalServerError,
			wantNotFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Search(context.Background(), "Anything")
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, errors.Is(err, domain.ErrNotFound))
		})
	}
}

func TestClient_Search_EmptyTitle(t *testing.T) {
	c := NewClient(zap.NewNop(), nil)

	_, err := c.Search(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Scrape(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		want         string
		wantErr      bool
		wantNotFound bool
	}{
		{
			name:   "First poster image",
			status: http.StatusOK,
			body:   titlePage,
			want:   "https://m.media-amazon.com/images/M/matrix.jpg",
		},
		{
			name:         "No image element",
			status:       http.StatusOK,
			body:         `<html><body><img class="other" src="x.jpg"/></body></html>`,
			wantErr:      true,
			wantNotFound: true,
		},
		{
			name:         "Image without src",
			status:       http.StatusOK,
			body:         `<html><body><img class="ipc-image"/></body></html>`,
			wantErr:      true,
			wantNotFound: true,
		},
		{
			name:    "Page missing",
			status:  http.StatusNotFound,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := c.Scrape(context.Background(), c.baseURL+"/title/tt0133093/")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantNotFound, errors.Is(err, domain.ErrNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
