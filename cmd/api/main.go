package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-service/internal/api/http"
	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/config"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/identity"
	"github.com/spec-kit/issue-service/internal/observability"
	"github.com/spec-kit/issue-service/internal/persistence"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/service"
	"github.com/spec-kit/issue-service/internal/store"
	"github.com/spec-kit/issue-service/internal/worker"
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

	metrics := observability.NewMetrics()

	var (
		pg        *persistence.Postgres
		redisConn *persistence.Redis
		docClient store.Client
	)

	switch cfg.Store.Backend {
	case "memory":
		logger.Info("using in-memory document store")
		docClient = store.NewMemoryClient()
	default:
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		redisConn = persistence.NewRedis(cfg.Redis, logger)
		defer redisConn.Close()

		notifier := store.NewRedisNotifier(redisConn.Client, cfg.Store.ChannelPrefix, logger)
		docClient = store.NewPostgresClient(pg.PoolHandle(), notifier, logger)
	}

	docClient = store.Instrument(docClient, metrics)

	reconciler := reconcile.New(docClient, logger)
	dispatcher := events.NewInMemoryDispatcher()

	lifecycleService := service.NewLifecycleService(docClient, dispatcher)
	engagementService := service.NewEngagementService(docClient, dispatcher)
	chatService := service.NewChatService(docClient, reconciler, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	verifier := identity.NewTokenVerifier(cfg.Identity.JWTSecret)
	identityMiddleware := identity.NewMiddleware(verifier)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn)
	issuesHandler := handlers.NewIssuesHandler(lifecycleService, engagementService, reconciler)
	chatHandler := handlers.NewChatHandler(chatService, reconciler)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:             healthHandler,
		Issues:             issuesHandler,
		Chat:               chatHandler,
		IdentityMiddleware: identityMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
