package engine

import "github.com/genricoloni/mpcpresence/internal/domain"

// Session is the last successfully published playback state. It is owned by
// the polling loop and only mutated through Commit and Reset.
type Session struct {
	Filename  string
	State     domain.PlaybackState
	Title     domain.NormalizedTitle
	Thumbnail string

	active   bool
	fallback string
}

// Change describes how a poll differs from the session.
type Change struct {
	Filename bool
	State    bool
}

// Any reports whether a new payload must be published.
func (c Change) Any() bool {
	return c.Filename || c.State
}

// NewSession returns the "nothing playing" session.
func NewSession(fallbackImage string) *Session {
	s := &Session{fallback: fallbackImage}
	s.Reset()
	return s
}

// Active reports whether a presence is currently published.
func (s *Session) Active() bool {
	return s.active
}

// Evaluate compares a Paused or Playing poll against the session. Any file
// counts as new while nothing is published.
func (s *Session) Evaluate(status *domain.MediaStatus) Change {
	return Change{
		Filename: !s.active || status.Filename != s.Filename,
		State:    status.State != s.State,
	}
}

// Commit records a successfully published poll.
func (s *Session) Commit(status *domain.MediaStatus, title domain.NormalizedTitle, thumbnail string) {
	s.Filename = status.Filename
	s.State = status.State
	s.Title = title
	s.Thumbnail = thumbnail
	s.active = true
}

// Reset returns the session to "nothing playing".
func (s *Session) Reset() {
	s.Filename = ""
	s.State = domain.StateNoSession
	s.Title = domain.NormalizedTitle{}
	s.Thumbnail = s.fallback
	s.active = false
}
