// Package usersapi lets administrators see who has signed in and change
// their role or status. Roles feed the access policy, so promoting a user
// to a privileged role grants them the admin screens on their next request.
package usersapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	userstore "github.com/mthunzitrust/mthunzisite/internal/app/store/users"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the user administration endpoints.
type Handler struct {
	users  *userstore.Store
	audit  *auditlog.Logger
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new usersapi handler.
func NewHandler(users *userstore.Store, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		users:  users,
		audit:  auditLogger,
		errLog: errorsfeature.NewErrorLogger(logger),
		logger: logger,
	}
}

// List handles GET /api/users?role=&status=&q=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	users, err := h.users.List(ctx, userstore.ListFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Search: q.Get("q"),
	})
	if err != nil {
		h.errLog.Log(r, "failed to list users", err)
		jsonutil.ServerError(w, err)
		return
	}
	jsonutil.OK(w, users)
}

// SetRole handles PUT /api/users/{id}/role with body {"role": "..."}.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in struct {
		Role string `json:"role"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, old, err := h.users.SetRole(ctx, id, in.Role)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if old != u.Role {
		h.audit.RoleChanged(r, u.ID, u.Email, old, u.Role)
	}
	jsonutil.OK(w, u)
}

// SetStatus handles PUT /api/users/{id}/status with body {"status": "..."}.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, old, err := h.users.SetStatus(ctx, id, in.Status)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if old != u.Status {
		h.audit.StatusChanged(r, u.ID, u.Email, old, u.Status)
	}
	jsonutil.OK(w, u)
}

// target parses the {id} parameter and refuses changes to the caller's own
// account, which could lock the last administrator out.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.NotFound(w, "User not found")
		return primitive.NilObjectID, false
	}
	if p, ok := authz.PrincipalFrom(r.Context()); ok && p.Kind == authz.KindSession && p.ID == id.Hex() {
		jsonutil.BadRequest(w, "You cannot change your own account")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		jsonutil.NotFound(w, "User not found")
	case errors.Is(err, userstore.ErrBadRole), errors.Is(err, userstore.ErrBadStatus):
		jsonutil.BadRequest(w, err.Error())
	default:
		h.errLog.Log(r, "failed to update user", err)
		jsonutil.ServerError(w, err)
	}
}
