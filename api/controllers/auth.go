package controllers

import (
	"net/http"
	"strings"

	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/auth"
	pkgAuth "github.com/classpulse/classpulse-backend/pkg/auth"
	"github.com/classpulse/classpulse-backend/pkg/config"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
)

// AuthLogin wires the password login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "logged in", result)
	}
}

// AuthRegister lets a school admin onboard teacher and parent accounts.
func AuthRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "register service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := reg.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "account created", result)
	}
}

// AuthRefresh rotates an access/refresh token pair.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Refresh(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "token refreshed", result)
	}
}

// AuthLogout revokes the refresh session behind the presented access token.
// The token may already be expired; only the session id matters here.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		token := bearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}

		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "logged out", nil)
	}
}

// AuthGoogleSignIn verifies a Google ID token. Known accounts get a full
// login; unknown ones get a signup ticket bounded by the reuse window.
func AuthGoogleSignIn(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.GoogleSignInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.GoogleSignIn(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		message := "logged in"
		if result.NeedsSignup {
			message = "signup required"
		}
		responses.WriteSuccess(w, message, result)
	}
}

// AuthGoogleSignup completes first-time account creation with a signup ticket.
func AuthGoogleSignup(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.GoogleSignupRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.GoogleSignup(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "account created", result)
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
