package presence

import (
	"github.com/genricoloni/mpcpresence/internal/domain"
)

// Discord rejects text fields shorter than two characters.
const minTextLength = 2

func toWire(a domain.Activity) *activity {
	out := &activity{
		Details: padText(a.Details),
		State:   padText(a.State),
	}

	if a.Start != nil {
		out.Timestamps = &timestamps{Start: a.Start.Unix()}
	}

	if a.LargeImage != "" || a.SmallImage != "" {
		out.Assets = &assets{
			LargeImage: a.LargeImage,
			LargeText:  padText(a.LargeText),
			SmallImage: a.SmallImage,
			SmallText:  padText(a.SmallText),
		}
	}
	return out
}

func padText(s string) string {
	if s == "" {
		return ""
	}
	for len([]rune(s)) < minTextLength {
		s += " "
	}
	return s
}
