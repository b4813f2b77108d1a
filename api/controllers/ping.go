package controllers

import (
	"net/http"

	"github.com/praxisworks/accounts-backend/api/middleware"
	"github.com/praxisworks/accounts-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if id, ok := middleware.IdentityFromContext(r.Context()); ok {
			payload["user_id"] = id.UserID.String()
		}
		responses.WriteSuccess(w, payload)
	}
}
