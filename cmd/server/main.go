package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mathieu-neron/realtube-scoring/internal/config"
	"github.com/mathieu-neron/realtube-scoring/internal/db"
	"github.com/mathieu-neron/realtube-scoring/internal/handler"
	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
	"github.com/mathieu-neron/realtube-scoring/internal/repository"
	"github.com/mathieu-neron/realtube-scoring/internal/router"
	"github.com/mathieu-neron/realtube-scoring/internal/service"
)

func setupDB(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	metrics.RegisterPool(pool)
	return pool, nil
}

// voteChanges opens a dedicated LISTEN connection per subscription attempt.
func voteChanges(listener *db.Listener) service.SubscribeFunc {
	return func(ctx context.Context) (service.Notifications, error) {
		sub, err := listener.Subscribe(ctx, db.VoteChangesChannel)
		if err != nil {
			// Return an untyped nil, not a nil *db.Subscription.
			return nil, err
		}
		return sub, nil
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	clock := clockwork.NewRealClock()

	pool, err := setupDB(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup database: %w", err)
	}
	defer pool.Close()

	cache := service.NewCacheService(ctx, cfg.RedisURL, logger)
	defer func() { _ = cache.Close() }()

	users := repository.NewUserRepo(pool)
	videos := repository.NewVideoRepo(pool)
	channels := repository.NewChannelRepo(pool)
	votes := repository.NewVoteRepo(pool)

	trustSvc := service.NewTrustService(clock)
	scoreSvc := service.NewScoreService(pool, votes, videos)
	voteSvc := service.NewVoteService(pool, users, videos, channels, votes, trustSvc, scoreSvc, cache, logger)
	videoSvc := service.NewVideoService(pool, videos, channels, cache, cfg.PreliminaryScore, logger)
	channelSvc := service.NewChannelService(pool, channels, cache, cfg.PreliminaryScore, logger)
	userSvc := service.NewUserService(users, trustSvc)

	scoreWorker := service.NewScoreWorker(
		voteChanges(db.NewListener(cfg.DatabaseURL)),
		scoreSvc,
		cache,
		clock,
		service.ScoreWorkerConfig{
			BatchWindow:      cfg.ScoreBatchWindow,
			ReconnectBackoff: cfg.ScoreReconnectBackoff,
			FlushTimeout:     cfg.ShutdownTimeout,
		},
		logger,
	)
	channelWorker := service.NewChannelWorker(channelSvc, clock, cfg.ChannelWorkerInterval, logger)

	app := fiber.New(fiber.Config{
		AppName:      "RealTube Scoring",
		ServerHeader: "RealTube",
	})
	router.Setup(app, &router.Handlers{
		Video:   handler.NewVideoHandler(videoSvc),
		Vote:    handler.NewVoteHandler(voteSvc, cfg.IPHashSalt),
		Channel: handler.NewChannelHandler(channelSvc),
		User:    handler.NewUserHandler(userSvc),
		Health:  handler.NewHealthHandler(pool, cache, scoreWorker),
	}, cfg.CORSOrigins, logger)

	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()

	g, gctx := errgroup.WithContext(workerCtx)
	g.Go(func() error { return scoreWorker.Run(gctx) })
	g.Go(func() error { return channelWorker.Run(gctx) })

	listenErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server starting")
		listenErr <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-listenErr:
		logger.Error().Err(serveErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	// Workers stop after the HTTP server. The score worker flushes its
	// pending set before returning.
	stopWorkers()
	waitDone := make(chan error, 1)
	go func() { waitDone <- g.Wait() }()
	select {
	case err := <-waitDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("worker error")
		}
	case <-shutdownCtx.Done():
		logger.Warn().Msg("workers did not stop before shutdown timeout")
	}

	logger.Info().Msg("shutdown complete")
	return serveErr
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := middleware.NewLogger(os.Stdout, cfg.LogLevel, "realtube-scoring")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

