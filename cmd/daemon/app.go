package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/mpcpresence/internal/config"
	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/genricoloni/mpcpresence/internal/engine"
	"github.com/genricoloni/mpcpresence/internal/fetcher"
	"github.com/genricoloni/mpcpresence/internal/imdb"
	"github.com/genricoloni/mpcpresence/internal/monitor"
	"github.com/genricoloni/mpcpresence/internal/presence"
	"github.com/genricoloni/mpcpresence/internal/resolver"
	"github.com/genricoloni/mpcpresence/internal/store"
	"github.com/genricoloni/mpcpresence/internal/title"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// appOptions assembles the daemon's dependency graph.
func appOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),

		// Logger configuration
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Provide dependencies
		fx.Provide(
			newLogger,
			newFs,
			newOverrides,
			newThumbnailCache,
			newTitleLookup,
			newResolver,
			newNormalizer,
			newStatusSource,
			newPublisher,
			newEngine,
		),

		// Lifecycle hooks
		fx.Invoke(registerHooks),
	)
}

func newFs() afero.Fs {
	return afero.NewOsFs()
}

func newOverrides(cfg *config.Config, fs afero.Fs, logger *zap.Logger) domain.OverrideStore {
	return store.LoadOverrides(fs, cfg.Storage.OverridesPath, logger.Named("overrides"))
}

func newThumbnailCache(cfg *config.Config, fs afero.Fs, logger *zap.Logger) *store.ThumbnailCache {
	return store.LoadThumbnailCache(fs, cfg.Storage.CachePath, logger.Named("cache"))
}

func newTitleLookup(cfg *config.Config, logger *zap.Logger) domain.TitleLookup {
	userAgent := cfg.Lookup.UserAgent
	if userAgent == "" {
		userAgent = fetcher.DefaultUserAgent
	}
	f := fetcher.NewHTTPFetcher(logger.Named("fetcher"),
		fetcher.WithTimeout(cfg.Lookup.Timeout),
		fetcher.WithHeader("User-Agent", userAgent),
		fetcher.WithHeader("Accept-Language", "en-US,en;q=0.9"),
	)
	return imdb.NewClient(logger.Named("imdb"), f, imdb.WithBaseURL(cfg.Lookup.BaseURL))
}

func newResolver(
	cfg *config.Config,
	logger *zap.Logger,
	overrides domain.OverrideStore,
	cache *store.ThumbnailCache,
	lookup domain.TitleLookup,
) domain.Resolver {
	return resolver.New(logger.Named("resolver"), overrides, cache, lookup, cfg.Presence.LargeImageKey)
}

func newNormalizer(cfg *config.Config) domain.Normalizer {
	return title.NewNormalizer(title.Options{
		Advanced:           cfg.Cleanup.Advanced,
		IgnoreBrackets:     cfg.Cleanup.IgnoreBrackets,
		ReplaceUnderscores: cfg.Cleanup.ReplaceUnderscores,
		ReplaceDots:        cfg.Cleanup.ReplaceDots,
	})
}

// newStatusSource selects the player backend from player.source.
func newStatusSource(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (domain.StatusSource, error) {
	switch cfg.Player.Source {
	case "mpc":
		f := fetcher.NewHTTPFetcher(logger.Named("mpc"), fetcher.WithTimeout(cfg.Player.Timeout))
		src := monitor.NewMPCSource(logger.Named("mpc"), f, cfg.Player.Port)
		logger.Info("Using MPC-HC web interface", zap.String("url", src.URL()))
		return src, nil
	case "mpris":
		src := monitor.NewMprisSource(logger.Named("mpris"), cfg.Player.MprisPlayer)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return src.Close()
			},
		})
		logger.Info("Using MPRIS player over D-Bus", zap.String("player", cfg.Player.MprisPlayer))
		return src, nil
	default:
		return nil, fmt.Errorf("unknown player source %q", cfg.Player.Source)
	}
}

func newPublisher(cfg *config.Config, logger *zap.Logger) domain.Publisher {
	return presence.NewClient(logger.Named("discord"), cfg.Discord.ClientID,
		presence.WithAttempts(cfg.Discord.ConnectAttempts))
}

func newEngine(
	cfg *config.Config,
	logger *zap.Logger,
	source domain.StatusSource,
	normalizer domain.Normalizer,
	res domain.Resolver,
	publisher domain.Publisher,
	shutdowner fx.Shutdowner,
) *engine.Engine {
	return engine.NewEngine(logger.Named("engine"), engine.Options{
		PollInterval:      cfg.Player.PollInterval,
		FlickerDelay:      cfg.Presence.FlickerDelay,
		FallbackImage:     cfg.Presence.LargeImageKey,
		SmallImagePlaying: cfg.Presence.SmallImagePlaying,
		SmallImagePaused:  cfg.Presence.SmallImagePaused,
		Tooltip:           cfg.Presence.LargeImageTooltip,
	}, source, normalizer, res, publisher, shutdowner)
}

// registerHooks sets up application lifecycle hooks.
// A failed Discord connection aborts startup before the loop runs.
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, publisher domain.Publisher, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := publisher.Connect(ctx); err != nil {
				logger.Error("Could not connect to Discord", zap.Error(err))
				return err
			}
			logger.Info("mpcpresence daemon started", zap.String("version", version))
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			return eng.Stop(ctx)
		},
	})
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := fx.New(appOptions(cfg))
	if err := app.Err(); err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	// Wait for a signal or a shutdown requested by the engine
	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	// Stop the application gracefully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return err
	}

	if exitCode != 0 {
		return fmt.Errorf("daemon exited with code %d", exitCode)
	}
	return nil
}
