package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/invora-hq/invora/internal/accounts"
	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/app"
	"github.com/invora-hq/invora/internal/auth"
	"github.com/invora-hq/invora/internal/billing"
	"github.com/invora-hq/invora/internal/clients"
	"github.com/invora-hq/invora/internal/dashboard"
	"github.com/invora-hq/invora/internal/invoices"
	"github.com/invora-hq/invora/internal/notifications"
	"github.com/invora-hq/invora/internal/observability"
	"github.com/invora-hq/invora/internal/platform/db"
	"github.com/invora-hq/invora/internal/products"
	"github.com/invora-hq/invora/internal/team"
	"github.com/invora-hq/invora/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	recorder := activity.NewRecorder(pool, logger)
	unreadCache := notifications.NewUnreadCache(redisClient, 10*time.Minute)
	notificationRepo := notifications.NewRepository(pool)
	notifier := notifications.NewDispatcher(notificationRepo, unreadCache, queue, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, "invora", cfg.JWTTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.NewMiddleware(tokens, authService)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo, recorder)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	teamRepo := team.NewPGRepository(pool)
	teamService := team.NewService(teamRepo, notifier, recorder)
	teamHandler := team.NewHandler(logger, teamService)

	clientsRepo := clients.NewPGRepository(pool)
	clientsService := clients.NewService(clientsRepo, recorder)
	clientsHandler := clients.NewHandler(logger, clientsService)

	productsRepo := products.NewPGRepository(pool)
	productsService := products.NewService(productsRepo, accountsService, recorder)
	productsHandler := products.NewHandler(logger, productsService)

	sequenceLocker := invoices.NewSequenceLocker(redislock.New(redisClient), logger)
	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo, accountsService, sequenceLocker, notifier, recorder)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	billingRepo := billing.NewPGRepository(pool)
	billingService := billing.NewService(billingRepo, notifier, recorder)
	billingHandler := billing.NewHandler(logger, billingService)

	notificationsService := notifications.NewService(notificationRepo, unreadCache)
	notificationsHandler := notifications.NewHandler(logger, notificationsService)

	activityService := activity.NewService(pool)
	activityHandler := activity.NewHandler(logger, activityService)

	dashboardService := dashboard.NewService(pool)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthHandler:          authHandler,
		AuthMiddleware:       authMiddleware,
		AccountsHandler:      accountsHandler,
		TeamHandler:          teamHandler,
		ClientsHandler:       clientsHandler,
		ProductsHandler:      productsHandler,
		InvoicesHandler:      invoicesHandler,
		BillingHandler:       billingHandler,
		NotificationsHandler: notificationsHandler,
		ActivityHandler:      activityHandler,
		DashboardHandler:     dashboardHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
