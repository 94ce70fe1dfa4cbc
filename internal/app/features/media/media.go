// Package media provides the upload endpoint and the media library API.
package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	mediastore "github.com/mthunzitrust/mthunzisite/internal/app/store/media"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultMaxUploadSize is used when no upload limit is configured.
const DefaultMaxUploadSize = 10 << 20 // 10MB

const multipartMemory = 8 << 20

// ObjectStore is the part of the storage backend the media feature needs.
// storage.Store from waffle satisfies it for both local and S3 backends.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// Handler provides upload and media library handlers.
type Handler struct {
	media       *mediastore.Store
	objects     ObjectStore
	maxSize     int64
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a new media Handler. maxSize <= 0 selects
// DefaultMaxUploadSize.
func NewHandler(media *mediastore.Store, objects ObjectStore, maxSize int64, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &Handler{
		media:       media,
		objects:     objects,
		maxSize:     maxSize,
		errLog:      errorsfeature.NewErrorLogger(logger),
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// UploadRoutes returns the router mounted at /api/upload.
func UploadRoutes(h *Handler, guard *authz.Guard) http.Handler {
	r := chi.NewRouter()
	r.Use(guard.Require)
	r.Post("/", h.Upload)
	return r
}

// Routes returns the media library router mounted at /api/media.
func Routes(h *Handler, guard *authz.Guard) http.Handler {
	r := chi.NewRouter()
	r.Use(guard.Require)
	r.Get("/", h.List)
	r.Delete("/{id}", h.Delete)
	return r
}

// Upload handles POST /api/upload. The request is multipart with the object
// in the "file" part. Responds 201 with the media record, whose url is the
// public address of the stored object.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			ledger.SetErrorClass(r.Context(), "validation")
			jsonutil.JSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"message": "File too large (max " + FormatFileSize(h.maxSize) + ")",
			})
			return
		}
		ledger.SetErrorClass(r.Context(), "validation")
		jsonutil.BadRequest(w, "Expected a multipart form with a file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		ledger.SetErrorClass(r.Context(), "validation")
		jsonutil.BadRequest(w, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		ledger.SetErrorClass(r.Context(), "validation")
		jsonutil.JSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"message": "File too large (max " + FormatFileSize(h.maxSize) + ")",
		})
		return
	}
	if header.Size == 0 {
		ledger.SetErrorClass(r.Context(), "validation")
		jsonutil.BadRequest(w, "Uploaded file is empty")
		return
	}

	contentType := ContentType(header.Header.Get("Content-Type"), header.Filename)
	key := StorageKey(header.Filename, time.Now().UTC())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.objects.Put(ctx, key, file, &storage.PutOptions{ContentType: contentType}); err != nil {
		h.errLog.Log(r, "failed to store upload", err)
		jsonutil.ServerError(w, err)
		return
	}

	m, err := h.media.Create(ctx, mediastore.CreateInput{
		Name:        header.Filename,
		StoragePath: key,
		URL:         h.objects.URL(key),
		Size:        header.Size,
		ContentType: contentType,
		CreatedByID: actorID(r),
	})
	if err != nil {
		// Don't leave an orphaned object behind.
		if derr := h.objects.Delete(ctx, key); derr != nil {
			h.logger.Warn("failed to remove orphaned upload", zap.String("path", key), zap.Error(derr))
		}
		h.errLog.Log(r, "failed to record upload", err)
		jsonutil.ServerError(w, err)
		return
	}

	h.auditLogger.MediaUploaded(r, m.ID, m.Name, m.ContentType)
	jsonutil.Created(w, m)
}

// List handles GET /api/media.
//
// Query parameters: kind (image, video, audio, pdf), q (name search),
// limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := mediastore.ListOptions{
		Kind:   q.Get("kind"),
		Search: q.Get("q"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			jsonutil.ValidationError(w, map[string]string{"limit": "must be a positive whole number"})
			return
		}
		opts.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.media.List(ctx, opts)
	if err != nil {
		h.errLog.Log(r, "failed to list media", err)
		jsonutil.ServerError(w, err)
		return
	}
	jsonutil.OK(w, items)
}

// Delete handles DELETE /api/media/{id}. The record is removed even when the
// storage backend no longer has the object.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.NotFound(w, "Media not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.media.GetByID(ctx, id)
	if errors.Is(err, mediastore.ErrNotFound) {
		jsonutil.NotFound(w, "Media not found")
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to load media", err)
		jsonutil.ServerError(w, err)
		return
	}

	if err := h.objects.Delete(ctx, m.StoragePath); err != nil {
		h.logger.Warn("failed to delete object from storage",
			zap.String("path", m.StoragePath),
			zap.Error(err))
	}

	if err := h.media.Delete(ctx, id); err != nil {
		if errors.Is(err, mediastore.ErrNotFound) {
			jsonutil.NotFound(w, "Media not found")
			return
		}
		h.errLog.Log(r, "failed to delete media", err)
		jsonutil.ServerError(w, err)
		return
	}

	h.auditLogger.MediaDeleted(r, m.ID, m.Name)
	jsonutil.OK(w, map[string]string{"message": "Media deleted", "id": m.ID.Hex()})
}

// actorID is the uploading user's id, or zero for API key callers.
func actorID(r *http.Request) primitive.ObjectID {
	p, ok := authz.PrincipalFrom(r.Context())
	if !ok || p.Kind != authz.KindSession {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
