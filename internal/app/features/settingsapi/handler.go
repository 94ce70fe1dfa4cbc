// Package settingsapi serves the site settings singleton.
//
// Endpoints:
//   - GET /api/settings - the settings document, created with defaults on first read
//   - PUT /api/settings - merge update (guarded); 201 when the update created the document
package settingsapi

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	settingsstore "github.com/mthunzitrust/mthunzisite/internal/app/store/settings"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler handles settings API requests.
type Handler struct {
	store  *settingsstore.Store
	audit  *auditlog.Logger
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new settingsapi handler.
func NewHandler(store *settingsstore.Store, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		audit:  auditLogger,
		errLog: errorsfeature.NewErrorLogger(logger),
		logger: logger,
	}
}

// Get handles GET /api/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	settings, err := h.store.Get(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to load settings", err)
		jsonutil.ServerError(w, err)
		return
	}
	jsonutil.OK(w, settings)
}

// Update handles PUT /api/settings.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := jsonutil.ReadBody(w, r)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	patch, err := h.store.Schema().ParsePatch(body)
	if err != nil {
		ledger.SetErrorClass(r.Context(), "validation")
		if errors.Is(err, schema.ErrMalformed) {
			jsonutil.BadRequest(w, "Invalid JSON payload")
			return
		}
		if !jsonutil.Invalid(w, err) {
			jsonutil.BadRequest(w, err.Error())
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	settings, created, err := h.store.Update(ctx, patch)
	if err != nil {
		h.errLog.Log(r, "failed to update settings", err)
		jsonutil.ServerError(w, err)
		return
	}

	if changed := changedFields(patch); len(changed) > 0 || created {
		h.audit.SettingsUpdated(r, changed, created)
	}

	if created {
		jsonutil.Created(w, settings)
		return
	}
	jsonutil.OK(w, settings)
}

// changedFields lists the dotted keys a patch writes, without updatedAt.
func changedFields(p schema.Patch) []string {
	var out []string
	for k := range p.Set {
		if k != "updatedAt" {
			out = append(out, k)
		}
	}
	for k := range p.Unset {
		out = append(out, k)
	}
	return out
}
