// Package errors holds the JSON fallbacks for the /api router and the
// request-scoped error logger every feature handler shares.
package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures with the request's path, method and ID,
// and copies the message onto the request's ledger entry.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log records msg and err at error level. err may be nil.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method))
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}

	ledgerMsg := msg
	if err != nil {
		fields = append(fields, zap.Error(err))
		ledgerMsg = msg + ": " + err.Error()
	}
	e.logger.Error(msg, fields...)
	ledger.SetErrorMessage(r.Context(), ledgerMsg)
}

// Handler answers requests the router itself rejects.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// NotFound is the /api router's 404.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	ledger.SetErrorMessage(r.Context(), "no route for "+r.Method+" "+r.URL.Path)
	jsonutil.NotFound(w, "Not found")
}

// MethodNotAllowed is the /api router's 405.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ledger.SetErrorMessage(r.Context(), r.Method+" not allowed on "+r.URL.Path)
	jsonutil.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// Recoverer turns a handler panic into a JSON 500 and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http can drop the connection.
func (h *Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			msg := fmt.Sprint(rec)
			h.logger.Error("handler panic",
				zap.String("panic", msg),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.ByteString("stack", debug.Stack()))
			ledger.SetErrorMessage(r.Context(), "panic: "+msg)
			jsonutil.Error(w, http.StatusInternalServerError, "Server error")
		}()
		next.ServeHTTP(w, r)
	})
}
