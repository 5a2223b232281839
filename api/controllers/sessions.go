package controllers

import (
	"net/http"
	"time"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/sessions"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
)

// SessionCreate schedules a class session owned by the calling teacher.
func SessionCreate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "sessions service unavailable"))
			return
		}

		var body sessions.CreateSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		result, err := svc.Create(ctx, middleware.SchoolIDFromContext(ctx), middleware.UserIDFromContext(ctx), body)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "session scheduled", result)
	}
}

// SessionGet fetches one session scoped to the caller's school.
func SessionGet(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Get(r.Context(), middleware.SchoolIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "session", result)
	}
}

// SessionOpen moves a scheduled session into the open state.
func SessionOpen(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		result, err := svc.Open(ctx, middleware.SchoolIDFromContext(ctx), middleware.UserIDFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "session opened", result)
	}
}

// SessionClose closes an open session and emits the closing event.
func SessionClose(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		result, err := svc.Close(ctx, middleware.SchoolIDFromContext(ctx), middleware.UserIDFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "session closed", result)
	}
}

// SessionList pages the calling teacher's sessions, optionally for one day
// and status.
func SessionList(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		req := sessions.ListSessionsRequest{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}

		if day, err := validators.ParseQueryTime(r, "day", false); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		} else if !day.IsZero() {
			day = day.UTC().Truncate(24 * time.Hour)
			req.Day = &day
		}

		if raw := validators.SanitizeString(r.URL.Query().Get("status"), 16); raw != "" {
			status := enums.SessionStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeValidation, "unknown session status").WithDetails(map[string]any{"field": "status"}))
				return
			}
			req.Status = status
		}

		ctx := r.Context()
		result, err := svc.ListByTeacher(ctx, middleware.SchoolIDFromContext(ctx), middleware.UserIDFromContext(ctx), req)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "sessions", result)
	}
}
