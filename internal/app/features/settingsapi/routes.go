package settingsapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
)

// Routes returns a router with the settings endpoints. Reading is public;
// writing passes through the guard.
func Routes(h *Handler, guard *authz.Guard) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.With(guard.Require).Put("/", h.Update)
	return r
}
