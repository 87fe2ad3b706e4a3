// Package main is the entry point for the VibeVault server.
// VibeVault is a multi-user playlist service with token-based authentication.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vibevault/vibevault/internal/auth"
	"github.com/vibevault/vibevault/internal/cache/memory"
	"github.com/vibevault/vibevault/internal/cache/redis"
	"github.com/vibevault/vibevault/internal/config"
	"github.com/vibevault/vibevault/internal/handler"
	"github.com/vibevault/vibevault/internal/metrics"
	"github.com/vibevault/vibevault/internal/repository"
	"github.com/vibevault/vibevault/internal/repository/postgres"
	"github.com/vibevault/vibevault/internal/repository/sqlite"
	"github.com/vibevault/vibevault/internal/service"
	"github.com/vibevault/vibevault/internal/token"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	logger := newLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting VibeVault server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}

	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	userRepo, playlistRepo, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	tokens, err := token.NewService(cfg.JWT.Secret, cfg.JWT.TTL())
	if err != nil {
		return err
	}

	userSvc := service.NewUserService(userRepo, logger)
	playlistSvc := service.NewPlaylistService(playlistRepo, userRepo, cache, cfg.Redis.TTL, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler: handler.NewAuthHandler(handler.AuthConfig{
			UserService:  userSvc,
			TokenService: tokens,
			Logger:       logger,
		}),
		PlaylistHandler: handler.NewPlaylistHandler(handler.PlaylistConfig{
			PlaylistService: playlistSvc,
			Logger:          logger,
		}),
		AuthMiddleware: auth.Middleware(userRepo, tokens, logger),
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore opens the configured database backend, runs migrations, and
// returns the repositories plus a close function.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.UserRepository, repository.PlaylistRepository, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return postgres.NewUserRepository(db), postgres.NewPlaylistRepository(db), func() { db.Close() }, nil

	default: // sqlite, enforced by config validation
		sqliteCfg := sqlite.DefaultConfig(cfg.Database.Path)
		sqliteCfg.JournalMode = cfg.Database.JournalMode
		sqliteCfg.BusyTimeout = cfg.Database.BusyTimeout
		sqliteCfg.SynchronousMode = cfg.Database.SynchronousMode

		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return sqlite.NewUserRepository(db), sqlite.NewPlaylistRepository(db), func() { db.Close() }, nil
	}
}

// openCache returns the playlist read cache: Redis when enabled, an
// in-process cache otherwise.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Cache, func(), error) {
	if cfg.Redis.Enabled {
		c, err := redis.NewCache(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	}

	c := memory.NewCache()
	return c, c.Close, nil
}

// newLogger builds the root logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
