package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classpulse/classpulse-backend/internal/cron"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/internal/notifications"
	"github.com/classpulse/classpulse-backend/internal/rankings"
	"github.com/classpulse/classpulse-backend/internal/sessions"
	"github.com/classpulse/classpulse-backend/internal/students"
	"github.com/classpulse/classpulse-backend/internal/users"
	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/db"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/metrics"
	"github.com/classpulse/classpulse-backend/pkg/migrate"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/idempotency"
	"github.com/classpulse/classpulse-backend/pkg/redis"
)

const metricsAddr = ":9092"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	events := outbox.NewService(outboxRepo, logg)

	sessionService, err := sessions.NewService(sessions.ServiceParams{
		Repo:   sessions.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Events: events,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	rankingService, err := rankings.NewService(rankings.ServiceParams{
		Repo:   rankings.NewRepository(dbClient.DB()),
		Cache:  redisClient,
		Config: cfg.Rankings,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ranking service", err)
		os.Exit(1)
	}

	notificationService, err := notificationServiceFor(dbClient, redisClient, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	runner, err := cron.NewRunner(cron.RunnerParams{
		Locks:   cron.NewRedisLockManager(redisClient),
		Metrics: metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
		LockTTL: cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron runner", err)
		os.Exit(1)
	}

	notificationRetention := time.Duration(cfg.Cron.NotificationRetentionDays) * 24 * time.Hour
	outboxRetention := time.Duration(cfg.Outbox.RetentionDays) * 24 * time.Hour

	jobs := []cron.Job{
		cron.NewSessionAutocloseJob(sessionService, cfg.Cron.SessionAutocloseInterval),
		cron.NewRankingRefreshJob(rankingService, cfg.Cron.RankingRefreshInterval),
		cron.NewNotificationCleanupJob(notificationService, notificationRetention, cfg.Cron.NotificationCleanupInterval),
		cron.NewOutboxRetentionJob(outboxRepo, outboxRetention, cfg.Cron.OutboxRetentionInterval),
	}
	for _, job := range jobs {
		if err := runner.Register(job); err != nil {
			logg.Error(context.Background(), "failed to register job", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"jobs": runner.JobNames(),
	})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, logg)

	runner.Start(ctx)

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// The cron worker only calls DeleteOlderThan, but the notifications service
// is wired in full so retention shares the exact production code path.
func notificationServiceFor(dbClient *db.Client, redisClient *redis.Client, cfg *config.Config, logg *logger.Logger) (notifications.Service, error) {
	guard, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	if err != nil {
		return nil, err
	}
	guardianService, err := guardians.NewService(guardians.ServiceParams{
		Tx:       dbClient,
		Links:    guardians.NewRepository(dbClient.DB()),
		Users:    users.NewRepository(dbClient.DB()),
		Students: students.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return nil, err
	}
	return notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(dbClient.DB()),
		Guardians: guardianService,
		Students:  students.NewRepository(dbClient.DB()),
		Guard:     guard,
		Logger:    logg,
	})
}

func serveMetrics(ctx context.Context, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: metricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
