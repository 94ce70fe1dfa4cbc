// internal/app/features/ledger/handler.go
package ledgerfeature

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	ledgerstore "github.com/mthunzitrust/mthunzisite/internal/app/store/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler handles ledger API requests.
type Handler struct {
	store  *ledgerstore.Store
	errLog *errorsfeature.ErrorLogger
	log    *zap.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(store *ledgerstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		errLog: errorsfeature.NewErrorLogger(logger),
		log:    logger,
	}
}

// List handles GET /api/ledger - recent failed API requests.
//
// Query parameters: method, path (prefix), error_class, status_min (default
// 400), limit (1-200, default 50).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledgerstore.ListFilter{
		Method:     q.Get("method"),
		PathPrefix: q.Get("path"),
		ErrorClass: q.Get("error_class"),
	}
	problems := map[string]string{}
	if v := q.Get("status_min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 || n > 599 {
			problems["status_min"] = "must be an HTTP status code"
		}
		filter.StatusCodeMin = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems["limit"] = "must be a whole number"
		}
		limit = n
	}
	if len(problems) > 0 {
		jsonutil.ValidationError(w, problems)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.store.Recent(ctx, filter, limit)
	if err != nil {
		h.errLog.Log(r, "failed to list ledger entries", err)
		jsonutil.ServerError(w, err)
		return
	}
	jsonutil.OK(w, entries)
}

// Get handles GET /api/ledger/{requestID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	entry, err := h.store.GetByRequestID(ctx, chi.URLParam(r, "requestID"))
	if errors.Is(err, ledgerstore.ErrNotFound) {
		jsonutil.NotFound(w, "Ledger entry not found")
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to load ledger entry", err)
		jsonutil.ServerError(w, err)
		return
	}
	jsonutil.OK(w, entry)
}
