package controllers

import (
	"net/http"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/attendance"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/google/uuid"
)

// AttendanceMark bulk-marks attendance for an open session.
func AttendanceMark(svc attendance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "attendance service unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		var body attendance.MarkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		result, err := svc.Mark(ctx, middleware.SchoolIDFromContext(ctx), middleware.UserIDFromContext(ctx), sessionID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "attendance marked", result)
	}
}

// AttendanceList returns every record for one session.
func AttendanceList(svc attendance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		result, err := svc.ListBySession(r.Context(), middleware.SchoolIDFromContext(r.Context()), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "attendance records", result)
	}
}

// AttendanceSummary aggregates one student's attendance over a date range.
// Parents may only read students linked to their account.
func AttendanceSummary(svc attendance.Service, guards guardians.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := validators.ParseUUIDParam(r, "studentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		from, err := validators.ParseQueryTime(r, "from", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		if middleware.RoleFromContext(ctx) == enums.UserRoleParent {
			linked, err := guards.LinkedStudentIDs(ctx, middleware.UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, r, err)
				return
			}
			if !containsUUID(linked, studentID) {
				responses.WriteError(ctx, logg, w, r, pkgerrors.New(pkgerrors.CodeForbidden, "student is not linked to this account"))
				return
			}
		}

		result, err := svc.Summarize(ctx, middleware.SchoolIDFromContext(ctx), attendance.SummaryRequest{
			StudentID: studentID,
			From:      from,
			To:        to,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "attendance summary", result)
	}
}

func containsUUID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
