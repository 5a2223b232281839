package controllers

import (
	"net/http"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/api/validators"
	"github.com/classpulse/classpulse-backend/internal/notifications"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
)

// NotificationList pages the calling guardian's notifications.
func NotificationList(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, r, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		result, err := svc.List(ctx, middleware.UserIDFromContext(ctx), notifications.ListRequest{
			UnreadOnly: unreadOnly,
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "notifications", result)
	}
}

// NotificationUnreadCount returns the badge count for the calling guardian.
func NotificationUnreadCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		count, err := svc.UnreadCount(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "unread count", map[string]int64{"unread": count})
	}
}

// NotificationMarkRead marks one of the caller's notifications as read.
func NotificationMarkRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}

		ctx := r.Context()
		if err := svc.MarkRead(ctx, middleware.UserIDFromContext(ctx), id); err != nil {
			responses.WriteError(ctx, logg, w, r, err)
			return
		}

		responses.WriteSuccess(w, "notification read", nil)
	}
}
