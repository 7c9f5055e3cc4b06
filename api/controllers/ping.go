package controllers

import (
	"net/http"

	"github.com/angelmondragon/agristore-backend/api/middleware"
	"github.com/angelmondragon/agristore-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{
			"scope":  "private",
			"status": "ok",
			"role":   middleware.RoleFromContext(r.Context()).String(),
		}
		if uid := middleware.UserIDFromContext(r.Context()); uid != "" {
			payload["user_id"] = uid
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "admin", "status": "ok"})
	}
}
