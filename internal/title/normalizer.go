// Package title derives display titles and search keys from media filenames.
package title

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// Release-group noise: resolution, source, codec and audio tags.
// Underscores count as word boundaries here since they separate words in filenames.
var qualityMarkerRegex = regexp.MustCompile(
	`(?i)(?:^|[\W_])(1080p|720p|480p|576p|2160p|4k|uhd|bluray|blu-ray|bdrip|dvdrip|hdrip|web-dl|webrip|hdtv|x264|h264|x265|h265|hevc|xvid|ac3|dts|aac|uncensored|remux)(?:[\W_]|$)`,
)

// Optional show name followed by an SxxEyy marker.
var seriesRegex = regexp.MustCompile(`(?i)^(.*?)[\s._-]*S(\d{1,2})E(\d{1,2})`)

var yearRegex = regexp.MustCompile(`(?:^|[\W_])((?:19|20)\d{2})(?:[\W_]|$)`)

var bracketRegex = regexp.MustCompile(`\[.*?\]`)

// Options toggles the individual cleanup steps.
type Options struct {
	// Advanced truncates the display title at the first quality marker
	Advanced           bool
	IgnoreBrackets     bool
	ReplaceUnderscores bool
	ReplaceDots        bool
}

// DefaultOptions enables every cleanup step.
func DefaultOptions() Options {
	return Options{
		Advanced:           true,
		IgnoreBrackets:     true,
		ReplaceUnderscores: true,
		ReplaceDots:        true,
	}
}

// Normalizer implements domain.Normalizer.
type Normalizer struct {
	opts Options
}

// NewNormalizer creates a normalizer with the given cleanup options
func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize derives the display title and search key for a filename.
func (n *Normalizer) Normalize(filename string) domain.NormalizedTitle {
	name := stripExtension(norm.NFC.String(filename))

	return domain.NormalizedTitle{
		Display:   n.Display(name),
		SearchKey: n.SearchKey(name),
	}
}

// Display cleans an extension-less name for humans, keeping episode titles.
func (n *Normalizer) Display(name string) string {
	if n.opts.Advanced {
		if loc := qualityMarkerRegex.FindStringSubmatchIndex(name); loc != nil {
			name = name[:loc[2]]
		}
	}
	return trimSeparators(n.cleanup(name))
}

// SearchKey extracts the show or movie title from an extension-less name.
func (n *Normalizer) SearchKey(name string) string {
	if m := seriesRegex.FindStringSubmatch(name); m != nil {
		name = m[1]
	} else if loc := yearRegex.FindStringSubmatchIndex(name); loc != nil {
		name = name[:loc[2]]
	}
	return trimSeparators(n.cleanup(name))
}

func (n *Normalizer) cleanup(name string) string {
	if n.opts.IgnoreBrackets {
		name = bracketRegex.ReplaceAllString(name, "")
	}
	if n.opts.ReplaceUnderscores {
		name = strings.ReplaceAll(name, "_", " ")
	}
	if n.opts.ReplaceDots {
		name = strings.ReplaceAll(name, ".", " ")
	}
	return name
}

// trimSeparators also drops an opening bracket left dangling by a cut,
// as in "Movie Name (" or "Title [".
func trimSeparators(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " -([{")
	return strings.TrimSpace(s)
}

// stripExtension removes a trailing ".ext". Dotted release names without an
// extension ("Show.S01E01", "Movie.2019") are left untouched.
func stripExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name
	}
	ext := name[idx+1:]
	if len(ext) == 0 || len(ext) > 5 {
		return name
	}

	hasLetter := false
	for _, r := range ext {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
		default:
			return name
		}
	}
	if !hasLetter {
		return name
	}
	return name[:idx]
}
