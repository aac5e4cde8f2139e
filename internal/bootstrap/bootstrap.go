package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/norrhem/stagecraft/internal/config"
	"github.com/norrhem/stagecraft/internal/core/ports"
	"github.com/norrhem/stagecraft/internal/core/usecase"
	"github.com/norrhem/stagecraft/internal/infrastructure/cache/redis"
	"github.com/norrhem/stagecraft/internal/infrastructure/queue/nats"
	"github.com/norrhem/stagecraft/internal/infrastructure/repository/postgres"
	"github.com/norrhem/stagecraft/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue    ports.RecomputeQueue
	Notifier ports.ProfileNotifier

	RecordSwipeUC  *usecase.RecordSwipeUseCase
	ProfileQueryUC ports.ProfileReader
	RecomputeUC    *usecase.RecomputeProfileUseCase
	PickImagesUC   ports.ImagePicker

	closeFn func()
}

// Options carries per-binary wiring the shared bootstrap cannot decide.
type Options struct {
	// QueueLagObserver, when set, is handed each consumed job's
	// publish-to-delivery latency.
	QueueLagObserver func(time.Duration)
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	swipeRepo := postgres.NewSwipeRepository(db)
	imageRepo := postgres.NewImageRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	executor := resilience.NewExecutor(resilience.Config{})
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSStream, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		LagObserver:        opts.QueueLagObserver,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init recompute queue: %w", err)
	}

	cache, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init profile cache: %w", err)
	}

	params := usecase.ScoringParams{
		WindowSize:          cfg.ScoreWindowSize,
		Decay:               cfg.ScoreDecay,
		VolumeThreshold:     cfg.ConfidenceVolumeThreshold,
		CompletionThreshold: cfg.CompletionThreshold,
	}

	recordSwipeUC := usecase.NewRecordSwipeUseCase(swipeRepo, queue, logger)
	profileQueryUC := usecase.NewProfileQueryUseCase(profileRepo, swipeRepo, cache, logger)
	recomputeUC := usecase.NewRecomputeProfileUseCase(swipeRepo, profileRepo, cache, cache, params, logger)
	pickImagesUC := usecase.NewPickImagesUseCase(imageRepo, cfg.PickBatchMax)

	return &App{
		Config: cfg,

		Queue:    queue,
		Notifier: cache,

		RecordSwipeUC:  recordSwipeUC,
		ProfileQueryUC: profileQueryUC,
		RecomputeUC:    recomputeUC,
		PickImagesUC:   pickImagesUC,

		closeFn: func() {
			queue.Close()
			_ = cache.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
