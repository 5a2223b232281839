package controllers

import (
	"net/http"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/google/uuid"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, "pong", map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if school := middleware.SchoolIDFromContext(r.Context()); school != uuid.Nil {
			payload["school_id"] = school.String()
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = string(role)
		}
		responses.WriteSuccess(w, "pong", payload)
	}
}
