package usersapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
)

// Routes returns the users router, mounted at /api/users. Every endpoint is
// guarded.
func Routes(h *Handler, guard *authz.Guard) http.Handler {
	r := chi.NewRouter()
	r.Use(guard.Require)
	r.Get("/", h.List)
	r.Put("/{id}/role", h.SetRole)
	r.Put("/{id}/status", h.SetStatus)
	return r
}
