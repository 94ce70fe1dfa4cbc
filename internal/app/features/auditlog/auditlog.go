// internal/app/features/auditlog/auditlog.go
package auditlog

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	"github.com/mthunzitrust/mthunzisite/internal/app/store/audit"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Handler serves the audit log API.
type Handler struct {
	store  *audit.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new audit log Handler.
func NewHandler(store *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		errLog: errorsfeature.NewErrorLogger(logger),
		logger: logger,
	}
}

// Routes returns the audit router, mounted at /api/audit.
func Routes(h *Handler, guard *authz.Guard) http.Handler {
	r := chi.NewRouter()
	r.Use(guard.Require)
	r.Get("/", h.List)
	return r
}

// List handles GET /api/audit.
//
// Query parameters:
//   - category: auth, admin or content
//   - event: event type, e.g. content_updated
//   - since, until: YYYY-MM-DD, inclusive
//   - user: ID of the user the events are about
//   - before: ID of the last event on the previous page
//   - limit: 1-500, default 100
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, problems := parseFilter(r)
	if len(problems) > 0 {
		jsonutil.ValidationError(w, problems)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.store.Query(ctx, f)
	if err != nil {
		h.errLog.Log(r, "failed to query audit log", err)
		jsonutil.ServerError(w, err)
		return
	}
	jsonutil.OK(w, events)
}

func parseFilter(r *http.Request) (audit.QueryFilter, map[string]string) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  q.Get("category"),
		EventType: q.Get("event"),
		Limit:     defaultLimit,
	}
	problems := map[string]string{}

	if f.Category != "" && !slices.Contains(audit.Categories(), f.Category) {
		problems["category"] = "must be one of: " + strings.Join(audit.Categories(), ", ")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			problems["limit"] = "must be a positive whole number"
		} else {
			f.Limit = min(n, maxLimit)
		}
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err != nil {
			problems["since"] = "must be a YYYY-MM-DD date"
		} else {
			f.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err != nil {
			problems["until"] = "must be a YYYY-MM-DD date"
		} else {
			end := t.Add(24*time.Hour - time.Millisecond)
			f.Until = &end
		}
	}
	for param, dst := range map[string]**primitive.ObjectID{"user": &f.UserID, "before": &f.Before} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			problems[param] = "must be an ID"
			continue
		}
		*dst = &oid
	}
	return f, problems
}
