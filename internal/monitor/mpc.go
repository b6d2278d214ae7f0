package monitor

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/genricoloni/mpcpresence/internal/domain"
	"go.uber.org/zap"
)

// DocumentFetcher loads and parses an HTML page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// MPCSource polls the MPC-HC web interface (variables.html).
type MPCSource struct {
	logger  *zap.Logger
	fetcher DocumentFetcher
	url     string
}

// NewMPCSource creates a status source for the web interface listening on port.
func NewMPCSource(logger *zap.Logger, fetcher DocumentFetcher, port int) *MPCSource {
	return &MPCSource{
		logger:  logger,
		fetcher: fetcher,
		url:     fmt.Sprintf("http://localhost:%d/variables.html", port),
	}
}

// URL returns the polled endpoint
func (s *MPCSource) URL() string {
	return s.url
}

// Poll fetches and parses the current player variables.
// An unreachable player is reported as domain.ErrNoSession.
func (s *MPCSource) Poll(ctx context.Context) (*domain.MediaStatus, error) {
	doc, err := s.fetcher.FetchDocument(ctx, s.url)
	if err != nil {
		s.logger.Debug("Player web interface unreachable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSession, err)
	}
	return parseVariables(doc)
}

func parseVariables(doc *goquery.Document) (*domain.MediaStatus, error) {
	stateText, err := field(doc, "state")
	if err != nil {
		return nil, err
	}
	code, err := strconv.Atoi(stateText)
	if err != nil {
		return nil, fmt.Errorf("invalid state %q: %w", stateText, err)
	}

	state := domain.PlaybackState(code)
	switch state {
	case domain.StateNoSession:
		return nil, domain.ErrNoSession
	case domain.StateStopped, domain.StatePaused, domain.StatePlaying:
	default:
		return nil, fmt.Errorf("unknown state code %d", code)
	}

	filePath, err := field(doc, "filepath")
	if err != nil {
		return nil, err
	}
	positionText, err := field(doc, "positionstring")
	if err != nil {
		return nil, err
	}
	durationText, err := field(doc, "durationstring")
	if err != nil {
		return nil, err
	}

	position, err := ParseClock(positionText)
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	duration, err := ParseClock(durationText)
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}

	return &domain.MediaStatus{
		State:        state,
		Filename:     baseName(filePath),
		Position:     position,
		Duration:     duration,
		PositionText: positionText,
		DurationText: durationText,
	}, nil
}

var errMissingField = errors.New("missing field")

// field returns the trimmed text of <p id="name">.
func field(doc *goquery.Document, name string) (string, error) {
	sel := doc.Find("p#" + name)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", errMissingField, name)
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

// baseName handles both Windows and POSIX separators.
func baseName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
