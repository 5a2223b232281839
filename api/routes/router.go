package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classpulse/classpulse-backend/api/controllers"
	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/internal/attendance"
	"github.com/classpulse/classpulse-backend/internal/auth"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/internal/notifications"
	"github.com/classpulse/classpulse-backend/internal/rankings"
	"github.com/classpulse/classpulse-backend/internal/sessions"
	"github.com/classpulse/classpulse-backend/internal/students"
	"github.com/classpulse/classpulse-backend/pkg/auth/session"
	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/redis"
)

// RateLimitStore is the counter surface the auth throttles run on.
type RateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RouterParams carries everything the HTTP surface depends on. Nil health
// pingers are reported as skipped; nil rate-limit/idempotency stores disable
// those middlewares (dev only).
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	RateLimiter      RateLimitStore
	IdempotencyStore redis.IdempotencyStore
	SessionChecker   session.AccessSessionChecker
	HealthChecks     []controllers.DependencyCheck

	AuthService     auth.Service
	RegisterService auth.RegisterService
	Students        students.Service
	Sessions        sessions.Service
	Attendance      attendance.Service
	Rankings        rankings.Service
	Guardians       guardians.Service
	Notifications   notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.HealthChecks...))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).
			Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).
			Post("/google", controllers.AuthGoogleSignIn(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).
			Post("/google/signup", controllers.AuthGoogleSignup(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))

		// Staff onboarding is authenticated and admin-only; the rate limit
		// still applies as a backstop against leaked admin tokens.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Use(middleware.Idempotency(p.IdempotencyStore, cfg.Attendance.IdempotencyTTL, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).
				Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.Idempotency(p.IdempotencyStore, cfg.Attendance.IdempotencyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/students", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Post("/", controllers.StudentCreate(p.Students, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Patch("/{studentId}", controllers.StudentUpdate(p.Students, logg))
			r.With(middleware.RequireAnyRole(logg, enums.UserRoleAdmin, enums.UserRoleTeacher)).
				Get("/", controllers.StudentList(p.Students, logg))
			r.With(middleware.RequireAnyRole(logg, enums.UserRoleAdmin, enums.UserRoleTeacher)).
				Get("/{studentId}", controllers.StudentGet(p.Students, logg))
			r.Get("/{studentId}/attendance/summary", controllers.AttendanceSummary(p.Attendance, p.Guardians, logg))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, enums.UserRoleAdmin, enums.UserRoleTeacher))
			r.Post("/", controllers.SessionCreate(p.Sessions, logg))
			r.Get("/", controllers.SessionList(p.Sessions, logg))
			r.Get("/{sessionId}", controllers.SessionGet(p.Sessions, logg))
			r.Post("/{sessionId}/open", controllers.SessionOpen(p.Sessions, logg))
			r.Post("/{sessionId}/close", controllers.SessionClose(p.Sessions, logg))
			r.Post("/{sessionId}/attendance", controllers.AttendanceMark(p.Attendance, logg))
			r.Get("/{sessionId}/attendance", controllers.AttendanceList(p.Attendance, logg))
		})

		r.Route("/rankings", func(r chi.Router) {
			r.With(middleware.RequireAnyRole(logg, enums.UserRoleAdmin, enums.UserRoleTeacher)).
				Post("/scores", controllers.ScoreCreate(p.Rankings, logg))
			r.Get("/{term}", controllers.RankingGet(p.Rankings, logg))
		})

		r.Route("/guardians", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Post("/links", controllers.GuardianLink(p.Guardians, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Delete("/links/{guardianId}/{studentId}", controllers.GuardianUnlink(p.Guardians, logg))
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleParent, logg))
			r.Get("/students", controllers.MyStudents(p.Guardians, p.Students, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationList(p.Notifications, logg))
				r.Get("/unread-count", controllers.NotificationUnreadCount(p.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.NotificationMarkRead(p.Notifications, logg))
			})
		})
	})

	return r
}
