package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/api/responses"
)

// PublicPing answers without authentication; uptime checks hit this.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok", "scope": "public"})
	}
}

// PrivatePing proves a token round-trips the auth middleware by echoing
// the authenticated user back.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok", "scope": "private"}
		if id := middleware.UserIDFromContext(r.Context()); id != uuid.Nil {
			body["user_id"] = id.String()
		}
		responses.WriteSuccess(w, body)
	}
}
