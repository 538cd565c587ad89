package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/database"
	"github.com/noah-isme/codearena-api/internal/handler"
	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/repository"
	"github.com/noah-isme/codearena-api/internal/router"
	"github.com/noah-isme/codearena-api/internal/sandbox"
	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/pkg/docker"
	"github.com/noah-isme/codearena-api/pkg/judge0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, leaderboard cache and redis events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	runner, closeRunner, err := newRunner(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create execution backend: %v", err)
	}
	defer closeRunner()

	validate := validator.New(validator.WithRequiredStructEnabled())

	problemRepo := repository.NewProblemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	userRepo := repository.NewUserRepository(db)

	leaderboardService := service.NewLeaderboardService(progressRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	feed := service.NewSubmissionFeed(redisClient, cfg.EventsChannel, natsConn, logger)
	feed.Start(appCtx)
	recorder := service.NewSubmissionRecorder(submissionRepo, progressRepo, userRepo, leaderboardService, feed, logger)
	executionService, err := service.NewExecutionService(runner, problemRepo, recorder, validate, logger)
	if err != nil {
		log.Fatalf("failed to create execution service: %v", err)
	}
	problemService := service.NewProblemService(problemRepo, validate, logger)
	profileService := service.NewProfileService(userRepo, submissionRepo, progressRepo, logger)
	seedService := service.NewSeedService(problemRepo, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		ExecutionHandler:      handler.NewExecutionHandler(executionService, logger),
		ProblemHandler:        handler.NewProblemHandler(problemService, logger),
		LeaderboardHandler:    handler.NewLeaderboardHandler(leaderboardService, logger),
		ProfileHandler:        handler.NewProfileHandler(profileService, logger),
		SeedHandler:           handler.NewSeedHandler(seedService, logger),
		SubmissionFeedHandler: handler.NewSubmissionFeedHandler(feed, logger),
		HealthProbes:          healthProbes(db, redisClient, natsConn, runner),
		JWTOptional:           middleware.JWTOptional(cfg.JWTSecret),
	})

	logger.Info().Str("backend", runner.Name()).Str("addr", cfg.HTTPAddress()).Msg("starting server")

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, runner sandbox.Runner) []handler.HealthProbe {
	probes := []handler.HealthProbe{
		{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "execution:" + runner.Name()},
	}

	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats status %s", natsConn.Status())
			}
			return nil
		}})
	}
	return probes
}

func newRunner(cfg config.Config, logger zerolog.Logger) (sandbox.Runner, func(), error) {
	backend, err := sandbox.NormalizeBackend(cfg.ExecutionBackend)
	if err != nil {
		return nil, nil, err
	}

	if backend == sandbox.BackendDocker {
		executor, err := docker.NewDockerExecutor(docker.Config{
			Host:          cfg.DockerHost,
			Timeout:       cfg.ExecutionTimeout,
			MemoryLimitMB: int64(cfg.CodeRunMemoryMB),
			CPUShares:     int64(cfg.CodeRunCPUShares),
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, err
		}
		runner := sandbox.NewDockerRunner(executor, sandbox.DockerConfig{
			Timeout:       cfg.ExecutionTimeout,
			MemoryLimitMB: cfg.CodeRunMemoryMB,
			CPUShares:     cfg.CodeRunCPUShares,
		})
		return runner, func() { _ = executor.Close() }, nil
	}

	client, err := judge0.NewClient(judge0.Config{
		BaseURL:         cfg.Judge0.URL,
		APIKey:          cfg.Judge0.APIKey,
		APIHost:         cfg.Judge0.Host,
		PollInterval:    cfg.Judge0.PollInterval,
		MaxPollAttempts: cfg.Judge0.MaxPollAttempts,
		RequestTimeout:  cfg.Judge0.RequestTimeout,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info().
		Str("judge0_url", cfg.Judge0.URL).
		Int("language_id", cfg.Judge0.LanguageID).
		Dur("poll_budget", client.PollBudget()).
		Msg("judge0 backend configured")
	return sandbox.NewJudge0Runner(client, cfg.Judge0.LanguageID), func() {}, nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
