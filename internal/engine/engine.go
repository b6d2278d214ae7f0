// Package engine runs the polling loop that mirrors player state into the
// presence service.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Options holds the engine's tunables.
type Options struct {
	PollInterval time.Duration
	// FlickerDelay separates the clear and the update of a Playing payload
	FlickerDelay      time.Duration
	FallbackImage     string
	SmallImagePlaying string
	SmallImagePaused  string
	Tooltip           string
}

// Engine orchestrates the presence pipeline.
// Each poll it diffs the player status against the session, resolves a
// thumbnail for new files and publishes the payload.
type Engine struct {
	logger     *zap.Logger
	opts       Options
	source     domain.StatusSource
	normalizer domain.Normalizer
	resolver   domain.Resolver
	publisher  domain.Publisher
	shutdowner fx.Shutdowner
	session    *Session
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	opts Options,
	source domain.StatusSource,
	normalizer domain.Normalizer,
	resolver domain.Resolver,
	publisher domain.Publisher,
	shutdowner fx.Shutdowner,
) *Engine {
	return &Engine{
		logger:     logger,
		opts:       opts,
		source:     source,
		normalizer: normalizer,
		resolver:   resolver,
		publisher:  publisher,
		shutdowner: shutdowner,
		session:    NewSession(opts.FallbackImage),
		now:        time.Now,
	}
}

// Start launches the polling loop in a goroutine.
// It returns immediately (non-blocking).
func (e *Engine) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		return nil
	}

	// The loop outlives the OnStart context, so it gets its own.
	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	e.logger.Info("Engine starting...", zap.Duration("poll_interval", e.opts.PollInterval))
	go e.runLoop(loopCtx, e.done)
	return nil
}

// Stop breaks the loop at its next sleep boundary, clears any published
// presence and closes the publisher.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	e.logger.Info("Engine stopping...")

	loopStopped := true
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			// The loop may still be inside a tick and owns the session.
			e.logger.Warn("Engine loop did not stop in time")
			loopStopped = false
		}
	}

	if loopStopped && e.session.Active() {
		if err := e.publisher.Clear(ctx); err != nil {
			e.logger.Warn("Failed to clear presence on shutdown", zap.Error(err))
		}
		e.session.Reset()
	}

	if err := e.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	return nil
}

// runLoop is the main polling loop: poll, decide, resolve, publish, sleep.
func (e *Engine) runLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Engine loop panicked",
				zap.Any("panic", r),
				zap.Stack("stack"))
			if e.shutdowner != nil {
				if err := e.shutdowner.Shutdown(fx.ExitCode(1)); err != nil {
					e.logger.Error("Failed to request shutdown", zap.Error(err))
				}
			}
		}
	}()

	for {
		e.tick(ctx)

		if err := sleep(ctx, e.opts.PollInterval); err != nil {
			e.logger.Info("Engine loop stopped")
			return
		}
	}
}

// tick handles a single poll.
func (e *Engine) tick(ctx context.Context) {
	status, err := e.source.Poll(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoSession) {
			e.logger.Warn("Could not read player status", zap.Error(err))
		}
		e.endSession(ctx, "no playback session")
		return
	}

	if status.State != domain.StatePlaying && status.State != domain.StatePaused {
		e.endSession(ctx, "playback stopped")
		return
	}

	change := e.session.Evaluate(status)
	if !change.Any() {
		return
	}

	title, thumbnail := e.session.Title, e.session.Thumbnail
	if change.Filename {
		title = e.normalizer.Normalize(status.Filename)
		e.logger.Info("New media detected",
			zap.String("file", status.Filename),
			zap.String("display", title.Display),
			zap.String("search_key", title.SearchKey))
		thumbnail = e.resolver.Resolve(ctx, title.SearchKey)
	}

	activity := e.buildActivity(status, title, thumbnail)
	if err := e.publish(ctx, status.State, activity); err != nil {
		// The session is left as is so the next poll retries.
		e.logger.Warn("Failed to publish presence", zap.Error(err))
		return
	}

	e.session.Commit(status, title, thumbnail)
	e.logger.Info("Presence updated",
		zap.String("state", status.State.String()),
		zap.String("details", activity.Details))
}

// publish sends the payload. Playing payloads clear the previous presence
// first so a stale start timestamp does not survive a track change.
func (e *Engine) publish(ctx context.Context, state domain.PlaybackState, a domain.Activity) error {
	if state == domain.StatePlaying {
		if err := e.publisher.Clear(ctx); err != nil {
			e.logger.Debug("Pre-update clear failed", zap.Error(err))
		}
		if err := sleep(ctx, e.opts.FlickerDelay); err != nil {
			return err
		}
	}
	return e.publisher.Update(ctx, a)
}

func (e *Engine) endSession(ctx context.Context, reason string) {
	if !e.session.Active() {
		return
	}

	e.logger.Info("Clearing presence", zap.String("reason", reason))
	if err := e.publisher.Clear(ctx); err != nil {
		e.logger.Warn("Failed to clear presence", zap.Error(err))
	}
	e.session.Reset()
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
