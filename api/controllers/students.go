package controllers

import (
	"net/http"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/students"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
)

// StudentCreate enrolls a student in the caller's school.
func StudentCreate(svc students.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "students service unavailable"))
			return
		}

		var body students.CreateStudentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Create(r.Context(), middleware.SchoolIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "student enrolled", result)
	}
}

// StudentGet fetches one student scoped to the caller's school.
func StudentGet(svc students.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "studentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Get(r.Context(), middleware.SchoolIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "student", result)
	}
}

// StudentUpdate applies a partial update.
func StudentUpdate(svc students.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "studentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		var body students.UpdateStudentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Update(r.Context(), middleware.SchoolIDFromContext(r.Context()), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "student updated", result)
	}
}

// StudentList pages the school roster, optionally filtered by grade level.
func StudentList(svc students.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.List(r.Context(), middleware.SchoolIDFromContext(r.Context()), students.ListStudentsRequest{
			GradeLevel: validators.SanitizeString(r.URL.Query().Get("grade_level"), 32),
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "students", result)
	}
}
