package domain

import (
	"errors"
	"time"
)

var (
	// ErrNoSession is returned by a StatusSource when the player is unreachable
	// or has nothing loaded.
	ErrNoSession = errors.New("no playback session")

	// ErrNotFound marks a lookup that completed but found nothing. Any other
	// lookup error is transient and may succeed on a later attempt.
	ErrNotFound = errors.New("not found")
)

// PlaybackState represents the current state of the media player.
// Values match the MPC-HC web interface state codes.
type PlaybackState int

const (
	// StateNoSession indicates the player has no file loaded or could not be reached
	StateNoSession PlaybackState = -1
	// StateStopped indicates the media is stopped
	StateStopped PlaybackState = 0
	// StatePaused indicates the media is paused
	StatePaused PlaybackState = 1
	// StatePlaying indicates the media is currently playing
	StatePlaying PlaybackState = 2
)

func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePaused:
		return "Paused"
	case StatePlaying:
		return "Playing"
	default:
		return "NoSession"
	}
}

// MediaStatus is a single poll of the player.
type MediaStatus struct {
	State    PlaybackState
	Filename string
	// Position and Duration are in whole seconds
	Position int
	Duration int
	// PositionText and DurationText are the player's own clock strings (e.g. "00:05:30")
	PositionText string
	DurationText string
}

// NormalizedTitle holds the two strings derived from a media filename.
type NormalizedTitle struct {
	// Display is shown in the presence payload and keeps episode suffixes
	Display string
	// SearchKey is the canonical title used for overrides, cache and remote lookup
	SearchKey string
}

// SearchHit is the first usable result of a remote title search.
type SearchHit struct {
	PageURL string
	Title   string
}

// Activity is the presence payload sent to the publishing service.
type Activity struct {
	Details    string
	State      string
	LargeImage string
	LargeText  string
	SmallImage string
	SmallText  string
	// Start anchors the elapsed-time counter; nil when no timer should be shown
	Start *time.Time
}
