package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/adapter/repo"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/http/handlers"
	httpapi "github.com/dineshsunshine/ai-studio-backend-sub001/internal/http/httpapi"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra/geoip"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra/google"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/jobs"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/middleware"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/migrate"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/queue"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/settings"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.ValidateAPI(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.ValidateStorage(); err != nil {
		logger.Fatal().Err(err).Msg("invalid storage configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if cfg.MigrateOnStart {
		if err := migrate.Run(ctx, dbpool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init artifact store")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	var verifier handlers.IdentityVerifier
	if cfg.Google.ClientID != "" {
		v, err := google.NewVerifier(ctx, google.Config{ClientID: cfg.Google.ClientID, Issuer: cfg.Google.Issuer})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init google verifier")
		}
		verifier = v
	} else {
		logger.Warn().Msg("GOOGLE_CLIENT_ID not set; google sign-in disabled")
	}

	runner := infra.NewSQLRunner(dbpool, logger)
	jobRepo := repo.NewJobRepository(runner)
	userRepo := repo.NewUserRepository(runner)
	settingsSvc := settings.NewService(repo.NewSettingsRepository(runner), logger)

	jobSvc, err := jobs.NewService(jobs.ServiceOptions{
		Jobs:    jobRepo,
		Store:   store,
		Queue:   queue.NewRedisQueue(rdb, cfg.Redis.QueueKey),
		Events:  jobs.NewRedisEvents(rdb, cfg.Redis.EventsPrefix, logger),
		Billing: cfg.Billing,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init job service")
	}

	app := &handlers.App{
		Jobs:      jobSvc,
		Settings:  settingsSvc,
		Users:     userRepo,
		Verifier:  verifier,
		Logger:    infra.Component(logger, "http"),
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		JWTTTL:    cfg.JWTTTL,
		Checks: map[string]handlers.HealthCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}

	var staticDir string
	if fs, ok := store.(*storage.FileStore); ok {
		staticDir = fs.BasePath()
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  resolver.Lookup(),
		CORSOrigins:    cfg.CORSAllowedOrigins,
		SubmitLimiter:  middleware.NewRedisLimiter(rdb, "ratelimit:submit:", cfg.RateLimitPerMin, time.Minute),
		StaticDir:      staticDir,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		Logger:         logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.IdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
