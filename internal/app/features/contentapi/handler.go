// Package contentapi serves the public JSON API for the site's content
// collections. One Handler is mounted per collection; its behavior comes
// entirely from the collection's schema.
//
// Endpoints, relative to the mount point:
//   - GET    /      list, filtered by the schema's query parameters
//   - GET    /{id}  one document by slug (slugged collections) or ObjectID
//   - POST   /      create (guarded)
//   - PUT    /{id}  merge update (guarded)
//   - DELETE /{id}  delete (guarded)
package contentapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	"github.com/mthunzitrust/mthunzisite/internal/app/store/audit"
	contentstore "github.com/mthunzitrust/mthunzisite/internal/app/store/content"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves one content collection. T is the model documents decode into.
type Handler[T any] struct {
	store  *contentstore.Store[T]
	schema *schema.Schema
	audit  *auditlog.Logger
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a handler for the store's collection.
func NewHandler[T any](store *contentstore.Store[T], auditLogger *auditlog.Logger, logger *zap.Logger) *Handler[T] {
	return &Handler[T]{
		store:  store,
		schema: store.Schema(),
		audit:  auditLogger,
		errLog: errorsfeature.NewErrorLogger(logger),
		logger: logger,
	}
}

// List handles GET /. The response is always a JSON array.
func (h *Handler[T]) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.schema.ParseFilters(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.store.List(ctx, filter)
	if err != nil {
		h.serverError(w, r, "list failed", err)
		return
	}
	jsonutil.OK(w, items)
}

// Get handles GET /{id}.
func (h *Handler[T]) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, "get failed", err)
		return
	}
	jsonutil.OK(w, item)
}

// Create handles POST /.
func (h *Handler[T]) Create(w http.ResponseWriter, r *http.Request) {
	body, err := jsonutil.ReadBody(w, r)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	doc, err := h.schema.ParseCreate(body)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.store.Create(ctx, doc)
	if err != nil {
		h.storeError(w, r, "create failed", err)
		return
	}

	slug, _ := doc[schema.SlugField].(string)
	h.audit.ContentChanged(r, audit.EventContentCreated, h.schema.Collection, hexID(doc["_id"]), slug)
	jsonutil.Created(w, item)
}

// Update handles PUT /{id}. Only the keys present in the body are written.
func (h *Handler[T]) Update(w http.ResponseWriter, r *http.Request) {
	body, err := jsonutil.ReadBody(w, r)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	patch, err := h.schema.ParsePatch(body)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.store.Update(ctx, id, patch)
	if err != nil {
		h.storeError(w, r, "update failed", err)
		return
	}

	if !patch.Empty() {
		slug, _ := patch.Set[schema.SlugField].(string)
		h.audit.ContentChanged(r, audit.EventContentUpdated, h.schema.Collection, id, slug)
	}
	jsonutil.OK(w, item)
}

// Delete handles DELETE /{id}.
func (h *Handler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.store.Delete(ctx, id); err != nil {
		h.storeError(w, r, "delete failed", err)
		return
	}

	h.audit.ContentChanged(r, audit.EventContentDeleted, h.schema.Collection, id, "")
	jsonutil.OK(w, map[string]string{
		"message": h.schema.Name + " deleted",
		"id":      id,
	})
}

// badRequest answers parse failures: malformed JSON or field validation.
func (h *Handler[T]) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	ledger.SetErrorClass(r.Context(), "validation")
	if errors.Is(err, schema.ErrMalformed) {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if jsonutil.Invalid(w, err) {
		return
	}
	jsonutil.BadRequest(w, err.Error())
}

func (h *Handler[T]) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, contentstore.ErrNotFound):
		jsonutil.NotFound(w, h.schema.Name+" not found")
	case errors.Is(err, contentstore.ErrConflict):
		ledger.SetErrorClass(r.Context(), "conflict")
		jsonutil.BadRequest(w, h.schema.Name+" with this slug already exists")
	default:
		h.serverError(w, r, msg, err)
	}
}

func (h *Handler[T]) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.errLog.Log(r, msg, err, zap.String("collection", h.schema.Collection))
	jsonutil.ServerError(w, err)
}

func hexID(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return ""
}
