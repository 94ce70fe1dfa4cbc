// internal/app/system/ledger/middleware.go
package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	ledgerstore "github.com/mthunzitrust/mthunzisite/internal/app/store/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/network"
	"go.uber.org/zap"
)

type ctxKey int

const ctxKeyEntry ctxKey = iota

// Recorder persists finished ledger entries.
type Recorder interface {
	Create(ctx context.Context, entry ledgerstore.Entry) error
}

// Config holds configuration for the ledger middleware.
type Config struct {
	// Store persists entries. A nil Store disables the middleware.
	Store Recorder

	Logger *zap.Logger

	// MaxBodyPreview is the maximum number of bytes captured from the
	// request body. 0 disables the preview.
	MaxBodyPreview int

	// HeadersToCapture lists the request headers copied onto the entry.
	// Authorization is always redacted.
	HeadersToCapture []string

	// OnlyPaths restricts recording to paths with one of these prefixes.
	OnlyPaths []string

	// ErrorsOnly skips requests that finish with a status below 400.
	ErrorsOnly bool

	// WriteTimeout bounds the detached write of each entry.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config that records failed /api requests.
func DefaultConfig(store Recorder, logger *zap.Logger) Config {
	return Config{
		Store:          store,
		Logger:         logger,
		MaxBodyPreview: 500,
		HeadersToCapture: []string{
			"Content-Type",
			"Accept",
			"User-Agent",
			"X-Request-ID",
			"Authorization",
		},
		OnlyPaths:    []string{"/api/"},
		ErrorsOnly:   true,
		WriteTimeout: 5 * time.Second,
	}
}

// Middleware returns HTTP middleware that records requests in the ledger.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.included(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			entry := &ledgerstore.Entry{
				RequestID:          uuid.New().String(),
				ClientRequestID:    r.Header.Get("X-Request-ID"),
				Method:             r.Method,
				Path:               r.URL.Path,
				Query:              r.URL.RawQuery,
				Headers:            cfg.headers(r),
				RemoteIP:           network.ClientIP(r),
				ActorType:          "anonymous",
				RequestContentType: r.Header.Get("Content-Type"),
				StartedAt:          start,
			}
			cfg.captureBody(r, entry)

			r = r.WithContext(context.WithValue(r.Context(), ctxKeyEntry, entry))
			wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			end := time.Now()
			entry.StatusCode = wrapped.statusCode
			entry.ResponseSize = wrapped.bytesWritten
			entry.CompletedAt = end
			entry.DurationMs = float64(end.Sub(start).Microseconds()) / 1000.0

			if wrapped.statusCode < 400 && cfg.ErrorsOnly {
				return
			}
			if wrapped.statusCode >= 400 && entry.ErrorClass == "" {
				entry.ErrorClass = classify(wrapped.statusCode)
			}

			record := *entry
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
				defer cancel()
				if err := cfg.Store.Create(ctx, record); err != nil && cfg.Logger != nil {
					cfg.Logger.Error("failed to store ledger entry",
						zap.String("request_id", record.RequestID),
						zap.Error(err))
				}
			}()
		})
	}
}

func (cfg Config) included(path string) bool {
	if len(cfg.OnlyPaths) == 0 {
		return true
	}
	for _, prefix := range cfg.OnlyPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (cfg Config) headers(r *http.Request) map[string]string {
	headers := make(map[string]string)
	for _, name := range cfg.HeadersToCapture {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		if strings.EqualFold(name, "Authorization") {
			if scheme, _, ok := strings.Cut(value, " "); ok {
				value = scheme + " [redacted]"
			} else {
				value = "[redacted]"
			}
		}
		headers[name] = value
	}
	return headers
}

// captureBody records size, hash and a preview of JSON bodies and restores
// the body for the handler. Multipart uploads are only sized.
func (cfg Config) captureBody(r *http.Request, entry *ledgerstore.Entry) {
	entry.RequestBodySize = r.ContentLength
	if cfg.MaxBodyPreview <= 0 || r.Body == nil || r.ContentLength <= 0 {
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20+1))
	if err != nil {
		return
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	hash := sha256.Sum256(body)
	entry.RequestBodyHash = hex.EncodeToString(hash[:])[:8]
	preview := string(body)
	if len(preview) > cfg.MaxBodyPreview {
		preview = preview[:cfg.MaxBodyPreview] + "..."
	}
	entry.RequestBodyPreview = preview
}

func classify(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "validation"
	case status == http.StatusUnauthorized:
		return "auth"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= 500:
		return "internal"
	default:
		return "client_error"
	}
}

// responseWrapper captures the status code and bytes written.
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// SetActor records who made the request.
func SetActor(ctx context.Context, actorType, id, name string) {
	if entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry); ok {
		entry.ActorType = actorType
		entry.ActorID = id
		entry.ActorName = name
	}
}

// SetErrorClass overrides the status-derived error class.
func SetErrorClass(ctx context.Context, class string) {
	if entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry); ok {
		entry.ErrorClass = class
	}
}

// SetErrorMessage sets the error message for the ledger entry.
func SetErrorMessage(ctx context.Context, message string) {
	if entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry); ok {
		entry.ErrorMessage = message
	}
}

// GetRequestID returns the ledger request ID for the current request.
func GetRequestID(ctx context.Context) string {
	if entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry); ok {
		return entry.RequestID
	}
	return ""
}
