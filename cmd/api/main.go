package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/storage"
	"github.com/spec-kit/support-desk/internal/worker"
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
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	blobStore, err := newBlobStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init blob store", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		BlobStore:      blobStore,
		GuestTokens:    auth.NewGuestTokenIssuer(cfg.Auth.GuestTokenBcryptCost),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Limits:         cfg.Limits,
	})

	unreadService := service.NewUnreadService(ticketRepo, redis.Client, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.Start(notificationService, unreadService)

	authMiddleware := auth.NewMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret))

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Limits.MaxAttachmentBytes) * (cfg.Limits.MaxAttachmentsPerMessage + 1),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Auth:     authMiddleware,
		Health:   handlers.NewHealthHandler(pool, redis),
		Tickets:  handlers.NewTicketsHandler(ticketService, cfg.Sync),
		Guest:    handlers.NewGuestTicketsHandler(ticketService, cfg.Sync),
		Admin:    handlers.NewAdminTicketsHandler(ticketService, unreadService, cfg.Sync),
		Registry: registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.BlobStore, error) {
	switch cfg.Driver {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	default:
		logger.Warn("using in-memory blob store, uploads will not survive restarts")
		return storage.NewMemoryStore(), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
