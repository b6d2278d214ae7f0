package engine

import (
	"fmt"
	"time"

	"github.com/genricoloni/mpcpresence/internal/domain"
)

// Discord truncates longer details strings server side.
const maxDetailsLength = 128

// buildActivity assembles the payload for a Paused or Playing poll.
func (e *Engine) buildActivity(status *domain.MediaStatus, title domain.NormalizedTitle, thumbnail string) domain.Activity {
	a := domain.Activity{
		Details:    truncate(title.Display, maxDetailsLength),
		LargeImage: thumbnail,
		LargeText:  title.SearchKey,
	}
	if a.LargeText == "" {
		a.LargeText = e.opts.Tooltip
	}
	if a.Details == "" {
		a.Details = truncate(status.Filename, maxDetailsLength)
	}

	switch status.State {
	case domain.StatePlaying:
		a.SmallImage = e.opts.SmallImagePlaying
		a.SmallText = "Playing"
		a.State = "Playing"
		if status.Duration > 0 {
			a.State = fmt.Sprintf("Playing | %s", status.DurationText)
			start := e.now().Add(-time.Duration(status.Position) * time.Second)
			a.Start = &start
		}
	case domain.StatePaused:
		a.SmallImage = e.opts.SmallImagePaused
		a.SmallText = "Paused"
		a.State = fmt.Sprintf("Paused | %s / %s", status.PositionText, status.DurationText)
	}
	return a
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
