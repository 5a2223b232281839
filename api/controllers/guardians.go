package controllers

import (
	"net/http"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/internal/students"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
)

// GuardianLink ties a parent account to a student (admin operation).
func GuardianLink(svc guardians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "guardians service unavailable"))
			return
		}

		var body guardians.LinkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.Link(r.Context(), middleware.SchoolIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "guardian linked", result)
	}
}

// GuardianUnlink removes a parent-student link (admin operation).
func GuardianUnlink(svc guardians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guardianID, err := validators.ParseUUIDParam(r, "guardianId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}
		studentID, err := validators.ParseUUIDParam(r, "studentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		if err := svc.Unlink(r.Context(), middleware.SchoolIDFromContext(r.Context()), guardianID, studentID); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "guardian unlinked", nil)
	}
}

// MyStudents lists the students linked to the calling parent.
func MyStudents(guards guardians.Service, roster students.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		linked, err := guards.LinkedStudentIDs(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		result, err := roster.ListForGuardian(ctx, linked)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "linked students", result)
	}
}
