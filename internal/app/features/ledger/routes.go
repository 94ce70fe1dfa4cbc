// internal/app/features/ledger/routes.go
package ledgerfeature

import (
	"github.com/go-chi/chi/v5"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
)

// Routes returns the router for the ledger API, mounted at /api/ledger.
func Routes(h *Handler, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(guard.Require)

	r.Get("/", h.List)
	r.Get("/{requestID}", h.Get)

	return r
}
