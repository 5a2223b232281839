package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/classpulse/classpulse-backend/internal/analytics"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/internal/notifications"
	"github.com/classpulse/classpulse-backend/internal/students"
	"github.com/classpulse/classpulse-backend/internal/users"
	"github.com/classpulse/classpulse-backend/pkg/bigquery"
	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/db"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/migrate"
	"github.com/classpulse/classpulse-backend/pkg/outbox/idempotency"
	"github.com/classpulse/classpulse-backend/pkg/pubsub"
	"github.com/classpulse/classpulse-backend/pkg/redis"
)

// The analytics worker owns both event subscriptions: attendance.marked rows
// flow to BigQuery and attendance.absent events fan out to guardian
// notifications.
func main() {
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	analyticsService, err := analytics.NewService(bqClient, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	guardianService, err := guardians.NewService(guardians.ServiceParams{
		Tx:       dbClient,
		Links:    guardians.NewRepository(dbClient.DB()),
		Users:    users.NewRepository(dbClient.DB()),
		Students: students.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create guardian service", err)
		os.Exit(1)
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(dbClient.DB()),
		Guardians: guardianService,
		Students:  students.NewRepository(dbClient.DB()),
		Guard:     guard,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	factsConsumer := analytics.NewConsumer(analyticsService, pubsubClient.AttendanceSubscription(), logg)
	absenceConsumer := notifications.NewConsumer(notificationService, pubsubClient.NotificationSubscription(), logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(ctx, "starting analytics worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return factsConsumer.Run(groupCtx) })
	group.Go(func() error { return absenceConsumer.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "analytics worker shutting down gracefully")
}
