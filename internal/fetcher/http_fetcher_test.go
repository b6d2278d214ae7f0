package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHTTPFetcher_FetchDocument(t *testing.T) {
	tests := []struct {
		name          string
		contentType   string
		responseBody  string
		statusCode    int
		delay         time.Duration
		ctxFunc       func() (context.Context, context.CancelFunc)
		expectedError string
		expectedText  string
	}{
		{
			name:         "Success - Valid Page",
			contentType:  "text/html; charset=utf-8",
			responseBody: `<html><body><p id="state">2</p></body></html>`,
			statusCode:   http.StatusOK,
			expectedText: "2",
		},
		{
			name:          "Error - 404 Not Found",
			contentType:   "text/html",
			statusCode:    http.StatusNotFound,
			expectedError: "unexpected status code: 404",
		},
		{
			name:          "Error - 503 Unavailable",
			contentType:   "text/html",
			statusCode:    http.StatusServiceUnavailable,
			expectedError: "unexpected status code: 503",
		},
		{
			name:          "Error - Invalid Content Type",
			contentType:   "image/jpeg",
			responseBody:  "not-a-page",
			statusCode:    http.StatusOK,
			expectedError: "url is not an html page",
		},
		{
			name:          "Error - Timeout",
			contentType:   "text/html",
			statusCode:    http.StatusOK,
			delay:         300 * time.Millisecond,
			expectedError: "network error",
		},
		{
			name: "Error - Context Cancelled",
			ctxFunc: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel() // Cancel immediately
				return ctx, cancel
			},
			expectedError: "context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUA, gotLang string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUA = r.Header.Get("User-Agent")
				gotLang = r.Header.Get("Accept-Language")
				if tt.delay > 0 {
					time.Sleep(tt.delay)
				}
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			var ctx context.Context
			var cancel context.CancelFunc
			if tt.ctxFunc != nil {
				ctx, cancel = tt.ctxFunc()
			} else {
				ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
			}
			defer cancel()

			fetcher := NewHTTPFetcher(zap.NewNop(),
				WithTimeout(100*time.Millisecond),
				WithHeader("User-Agent", DefaultUserAgent),
				WithHeader("Accept-Language", "en-US,en;q=0.9"),
			)
			doc, err := fetcher.FetchDocument(ctx, server.URL)

			if tt.expectedError != "" {
				if err == nil {
					t.Fatalf("expected error containing '%s', got nil", tt.expectedError)
				}
				if !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("expected error '%s' to contain '%s'", err.Error(), tt.expectedError)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := doc.Find("p#state").Text(); got != tt.expectedText {
				t.Errorf("expected text %q, got %q", tt.expectedText, got)
			}
			if gotUA != DefaultUserAgent {
				t.Errorf("expected browser user agent, got %q", gotUA)
			}
			if gotLang != "en-US,en;q=0.9" {
				t.Errorf("expected Accept-Language header, got %q", gotLang)
			}
		})
	}
}
