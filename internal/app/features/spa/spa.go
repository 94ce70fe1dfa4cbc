// Package spa serves the built frontend. Static assets come straight from
// disk; every other page gets index.html with the head rewritten from the
// current site settings.
package spa

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dalemusser/waffle/pantry/fileserver"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.uber.org/zap"
)

// IndexFile is the SPA shell served for client-side routes.
const IndexFile = "index.html"

// SettingsSource loads the site settings. settingsstore.Store satisfies it.
type SettingsSource interface {
	Get(ctx context.Context) (*models.SiteSettings, error)
}

// Handler serves the SPA.
type Handler struct {
	dir      string
	settings SettingsSource
	assets   http.Handler
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a handler serving the build output in dir.
func NewHandler(dir string, settings SettingsSource, logger *zap.Logger) *Handler {
	return &Handler{
		dir:      dir,
		settings: settings,
		assets:   fileserver.Handler("", dir),
		errLog:   errorsfeature.NewErrorLogger(logger),
		logger:   logger,
	}
}

// Available reports whether the build output contains index.html.
func (h *Handler) Available() bool {
	info, err := os.Stat(filepath.Join(h.dir, IndexFile))
	return err == nil && !info.IsDir()
}

// ServeHTTP serves an asset when the path names a file under dir and the
// rewritten index.html otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonutil.JSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean != "/" && clean != "/"+IndexFile && h.isFile(clean) {
		h.assets.ServeHTTP(w, r)
		return
	}
	// Unknown asset paths (anything with an extension) are real misses, not
	// client routes.
	if path.Ext(clean) != "" && clean != "/"+IndexFile {
		jsonutil.NotFound(w, "Not found")
		return
	}

	h.serveIndex(w, r)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := os.ReadFile(filepath.Join(h.dir, IndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		jsonutil.NotFound(w, "Not found")
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to read index.html", err)
		jsonutil.ServerError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	// A settings outage still serves the unmodified shell.
	if settings, err := h.settings.Get(ctx); err != nil {
		h.logger.Warn("spa: settings unavailable, serving unmodified index.html", zap.Error(err))
	} else if out, err := Inject(doc, HeadFrom(settings)); err != nil {
		h.logger.Warn("spa: head injection failed", zap.Error(err))
	} else {
		doc = out
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(doc)
}

func (h *Handler) isFile(urlPath string) bool {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" || strings.HasPrefix(rel, "..") {
		return false
	}
	info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}
