package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/triage-service/internal/api/http"
	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/queue"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Warn("postgres unavailable, continuing on in-memory store", zap.Error(err))
		pg = &persistence.Postgres{}
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	breaker := repository.NewBreaker(logger)
	if pool == nil {
		breaker.Trip("postgres not configured", nil)
	}

	queryRepo := repository.NewFailoverQueryRepository(
		repository.NewQueryRepository(pool), repository.NewMemoryQueryRepository(), breaker)
	teamRepo := repository.NewFailoverTeamRepository(
		repository.NewTeamRepository(pool), repository.NewMemoryTeamRepository(), breaker)
	activityRepo := repository.NewFailoverActivityRepository(
		repository.NewActivityRepository(pool), repository.NewMemoryActivityRepository(), breaker)

	if err := service.EnsureDefaultTeams(ctx, teamRepo, logger); err != nil {
		logger.Fatal("failed to seed default teams", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	detector := service.NewPriorityDetector()
	workflow := service.NewStatusWorkflow()
	resolver := service.NewTeamResolver(teamRepo, logger)
	classifier := service.NewClassifier(cfg.Classifier, logger)

	triageService := service.NewTriageService(service.TriageDependencies{
		QueryRepo:    queryRepo,
		ActivityRepo: activityRepo,
		Detector:     detector,
		Resolver:     resolver,
		Workflow:     workflow,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})
	batchService := service.NewBatchTriageService(queryRepo, teamRepo, triageService, logger)

	broker := queue.NewRedisBroker(redis.Client, cfg.Queue.MaxAttempts)
	queryService := service.NewQueryService(service.QueryDependencies{
		QueryRepo:    queryRepo,
		ActivityRepo: activityRepo,
		Workflow:     workflow,
		Enqueuer:     broker,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	worker := queue.NewWorker(broker, cfg.Queue.Concurrency, logger, metrics)
	queue.NewHandlerSet(queryRepo, classifier, triageService, logger).Register(worker)
	worker.Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, breaker, metrics),
		Queries:    handlers.NewQueriesHandler(queryService),
		Assignment: handlers.NewAssignmentHandler(triageService, batchService),
		Teams:      handlers.NewTeamsHandler(teamRepo),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	worker.Wait()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
