package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/rankings"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
)

// ScoreCreate records one graded result for the caller's school.
func ScoreCreate(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "rankings service unavailable"))
			return
		}

		var body rankings.RecordScoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		result, err := svc.RecordScore(ctx, middleware.SchoolIDFromContext(ctx), middleware.UserIDFromContext(ctx), body)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "score recorded", result)
	}
}

// RankingGet returns the ranked student averages for a school term.
func RankingGet(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := validators.SanitizeString(chi.URLParam(r, "term"), 32)
		if term == "" {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeValidation, "term is required").WithDetails(map[string]any{"field": "term"}))
			return
		}

		result, err := svc.GetRanking(r.Context(), middleware.SchoolIDFromContext(r.Context()), term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "ranking", result)
	}
}
