package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/adapter/repo"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra/credentials"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/jobs"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/providers/genai"
	videoprovider "github.com/dineshsunshine/ai-studio-backend-sub001/internal/providers/video"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/queue"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("process", "worker").Logger()
	if err := cfg.ValidateStorage(); err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid storage configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: artifact store init failed")
	}

	runner := infra.NewSQLRunner(pool, logger)
	keys := credentials.NewKeySource(cfg.Gemini.APIKey, credentials.NewStore(runner))
	genaiLogger := infra.Component(logger, "genai")
	client := genai.NewClient(genai.Options{
		Key:        keys.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Gemini.HTTPTimeout},
		Logger:     &genaiLogger,
	})

	jobRepo := repo.NewJobRepository(runner)
	userRepo := repo.NewUserRepository(runner)
	q := queue.NewRedisQueue(rdb, cfg.Redis.QueueKey)
	events := jobs.NewRedisEvents(rdb, cfg.Redis.EventsPrefix, logger)

	worker, err := jobs.NewWorker(jobs.WorkerOptions{
		Jobs:            jobRepo,
		Users:           userRepo,
		Queue:           q,
		Generator:       videoprovider.NewVeoGenerator(client, cfg.Gemini.PollInterval),
		Store:           store,
		Events:          events,
		Config:          cfg.Worker,
		RefundOnFailure: cfg.Billing.RefundOnFailure,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: init failed")
	}
	maint, err := jobs.NewMaintenance(jobs.MaintenanceOptions{
		Jobs:            jobRepo,
		Users:           userRepo,
		Queue:           q,
		Events:          events,
		Config:          cfg.Worker,
		RefundOnFailure: cfg.Billing.RefundOnFailure,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: maintenance init failed")
	}

	logger.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Str("queue", cfg.Redis.QueueKey).
		Str("storage", cfg.Storage.Driver).
		Msg("worker started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return maint.RunReaper(gctx) })
	g.Go(func() error { return maint.RunSweeper(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("worker stopped")
}
