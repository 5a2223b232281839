package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/classpulse/classpulse-backend/api/controllers"
	"github.com/classpulse/classpulse-backend/api/routes"
	"github.com/classpulse/classpulse-backend/internal/attendance"
	"github.com/classpulse/classpulse-backend/internal/auth"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/internal/notifications"
	"github.com/classpulse/classpulse-backend/internal/rankings"
	"github.com/classpulse/classpulse-backend/internal/sessions"
	"github.com/classpulse/classpulse-backend/internal/students"
	"github.com/classpulse/classpulse-backend/internal/users"
	"github.com/classpulse/classpulse-backend/pkg/auth/session"
	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/db"
	"github.com/classpulse/classpulse-backend/pkg/identity"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/migrate"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/idempotency"
	"github.com/classpulse/classpulse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	// Google sign-in is optional; without a client id the endpoint rejects
	// tokens but password login still works.
	var verifier identity.Verifier
	if cfg.Google.ClientID != "" {
		googleVerifier, err := identity.NewGoogleVerifier(context.Background(), cfg.Google)
		if err != nil {
			logg.Error(context.Background(), "failed to create google verifier", err)
			os.Exit(1)
		}
		verifier = googleVerifier
	} else {
		logg.Warn(context.Background(), "google client id not configured, google sign-in disabled")
	}

	usersRepo := users.NewRepository(dbClient.DB())
	studentsRepo := students.NewRepository(dbClient.DB())
	sessionsRepo := sessions.NewRepository(dbClient.DB())
	attendanceRepo := attendance.NewRepository(dbClient.DB())
	guardiansRepo := guardians.NewRepository(dbClient.DB())
	rankingsRepo := rankings.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		Verifier:       verifier,
		Tickets:        auth.NewTicketStore(),
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(usersRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	studentService, err := students.NewService(studentsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create student service", err)
		os.Exit(1)
	}

	sessionService, err := sessions.NewService(sessions.ServiceParams{
		Repo:   sessionsRepo,
		Tx:     dbClient,
		Events: events,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	attendanceService, err := attendance.NewService(attendance.ServiceParams{
		Repo:     attendanceRepo,
		Sessions: sessionsRepo,
		Students: studentsRepo,
		Tx:       dbClient,
		Events:   events,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create attendance service", err)
		os.Exit(1)
	}

	rankingService, err := rankings.NewService(rankings.ServiceParams{
		Repo:   rankingsRepo,
		Cache:  redisClient,
		Config: cfg.Rankings,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ranking service", err)
		os.Exit(1)
	}

	guardianService, err := guardians.NewService(guardians.ServiceParams{
		Tx:       dbClient,
		Links:    guardiansRepo,
		Users:    usersRepo,
		Students: studentsRepo,
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
		Repo:      notificationsRepo,
		Guardians: guardianService,
		Students:  studentsRepo,
		Guard:     guard,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			RateLimiter:      redisClient,
			IdempotencyStore: redisClient,
			SessionChecker:   sessionManager,
			HealthChecks: []controllers.DependencyCheck{
				{Name: "database", Pinger: dbClient},
				{Name: "redis", Pinger: redisClient},
			},
			AuthService:     authService,
			RegisterService: registerService,
			Students:        studentService,
			Sessions:        sessionService,
			Attendance:      attendanceService,
			Rankings:        rankingService,
			Guardians:       guardianService,
			Notifications:   notificationService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
