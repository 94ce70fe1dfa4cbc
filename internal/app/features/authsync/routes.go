package authsync

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the auth router, mounted at /api/auth. The session user is
// loaded by the application-wide session middleware.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/sync", h.Sync)
	r.Get("/me", h.Me)
	r.Post("/logout", h.Logout)
	return r
}
