// Package authsync connects the identity provider to the service's session.
//
// The admin frontend signs the user in with the provider and then calls
// POST /api/auth/sync with the provider access token. The token is verified
// against the provider's userinfo endpoint, the user record is upserted, and
// the access policy decides whether a session is opened.
package authsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	"github.com/mthunzitrust/mthunzisite/internal/app/store/ratelimit"
	userstore "github.com/mthunzitrust/mthunzisite/internal/app/store/users"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/network"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.uber.org/zap"
)

// UserView is the user as reported to the frontend.
type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// StateResponse is the body of every endpoint in this package.
type StateResponse struct {
	State    string    `json:"state"`
	Message  string    `json:"message,omitempty"`
	User     *UserView `json:"user,omitempty"`
	LoginURL string    `json:"loginUrl,omitempty"`
	// RetryAfter is the lockout expiry when syncs are rate limited.
	RetryAfter *time.Time `json:"retryAfter,omitempty"`
}

// Handler serves the identity sync endpoints.
type Handler struct {
	provider auth.IdentityProvider
	users    *userstore.Store
	sessions *auth.SessionManager
	policy   *authz.Policy
	limiter  *ratelimit.Store
	audit    *auditlog.Logger
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates the handler. A nil provider reports the service as not
// ready to verify identities; a nil limiter disables rate limiting.
func NewHandler(provider auth.IdentityProvider, users *userstore.Store, sessions *auth.SessionManager,
	policy *authz.Policy, limiter *ratelimit.Store, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		provider: provider,
		users:    users,
		sessions: sessions,
		policy:   policy,
		limiter:  limiter,
		audit:    auditLogger,
		errLog:   errorsfeature.NewErrorLogger(logger),
		logger:   logger,
	}
}

// Sync handles POST /api/auth/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		jsonutil.JSON(w, http.StatusServiceUnavailable, StateResponse{
			State:   auth.StateChecking,
			Message: "Identity provider not configured",
		})
		return
	}

	token, ok := auth.BearerToken(r)
	if !ok {
		h.unauthenticated(w, r, "Provider token required")
		return
	}

	ipKey := ratelimit.Key("", network.ClientIP(r))
	if h.locked(w, r, ipKey, "") {
		return
	}

	verifyCtx, cancelVerify := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancelVerify()

	ident, err := h.provider.Verify(verifyCtx, token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnverifiedEmail):
		h.recordFailure(r, ipKey)
		h.audit.SyncFailed(r, "", err.Error())
		h.unauthenticated(w, r, "Sign-in could not be verified")
		return
	case err != nil:
		h.errLog.Log(r, "identity provider unavailable", err)
		jsonutil.JSON(w, http.StatusServiceUnavailable, StateResponse{
			State:   auth.StateChecking,
			Message: "Identity provider unavailable",
		})
		return
	}

	emailKey := ratelimit.Key(ident.Email, "")
	if h.locked(w, r, emailKey, ident.Email) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.users.SyncIdentity(ctx, userstore.Identity{
		Email:     ident.Email,
		Name:      ident.Name,
		AvatarURL: ident.AvatarURL,
		Subject:   ident.Subject,
	})
	if err != nil {
		h.errLog.Log(r, "failed to sync user", err)
		jsonutil.ServerError(w, err)
		return
	}

	decision := h.policy.Evaluate(authz.Identity{Email: user.Email, Role: user.Role})
	if user.Status == models.StatusDisabled || !decision.Authorized() {
		h.recordFailure(r, emailKey)
		h.sessions.DestroySession(w, r)
		h.audit.AccessDenied(r, &user.ID, user.Email)
		h.logger.Info("identity sync denied",
			zap.String("email", user.Email),
			zap.String("role", user.Role),
			zap.String("status", user.Status))
		jsonutil.JSON(w, http.StatusForbidden, StateResponse{
			State:   auth.StateDenied,
			Message: "Access denied",
			User:    view(user),
		})
		return
	}

	if err := h.sessions.CreateSession(w, r, auth.SessionUser{
		ID:        user.ID.Hex(),
		Name:      user.FullName,
		Email:     user.Email,
		Role:      user.Role,
		AvatarURL: user.AvatarURL,
	}); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		jsonutil.ServerError(w, err)
		return
	}

	h.clear(r, ipKey, emailKey)
	ledger.SetActor(r.Context(), authz.KindSession, user.ID.Hex(), user.FullName)
	h.audit.IdentitySynced(r, user.ID, user.Email, user.Role)
	jsonutil.OK(w, StateResponse{State: auth.StateAuthorized, User: view(user)})
}

// Me handles GET /api/auth/me. It reports the state of the current session
// without calling the provider; the body always carries a state.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.OK(w, StateResponse{
			State:    auth.StateUnauthenticated,
			LoginURL: auth.LoginURL(returnTo(r)),
		})
		return
	}

	u := &UserView{ID: su.ID, Email: su.Email, Name: su.Name, Role: su.Role, AvatarURL: su.AvatarURL}
	if !h.policy.Evaluate(authz.Identity{Email: su.Email, Role: su.Role}).Authorized() {
		jsonutil.OK(w, StateResponse{State: auth.StateDenied, Message: "Access denied", User: u})
		return
	}
	jsonutil.OK(w, StateResponse{State: auth.StateAuthorized, User: u})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if su, ok := auth.CurrentUser(r); ok {
		h.audit.Logout(r, su.ID, su.Email)
	}
	h.sessions.DestroySession(w, r)
	jsonutil.OK(w, StateResponse{State: auth.StateUnauthenticated, Message: "Signed out"})
}

func (h *Handler) unauthenticated(w http.ResponseWriter, r *http.Request, msg string) {
	jsonutil.JSON(w, http.StatusUnauthorized, StateResponse{
		State:    auth.StateUnauthenticated,
		Message:  msg,
		LoginURL: auth.LoginURL(returnTo(r)),
	})
}

// locked writes a 429 and reports true when key is locked out.
func (h *Handler) locked(w http.ResponseWriter, r *http.Request, key, email string) bool {
	if h.limiter == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	allowed, _, until := h.limiter.CheckAllowed(ctx, key)
	if allowed {
		return false
	}
	h.audit.SyncRateLimited(r, email)
	if until != nil {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Until(*until).Seconds())+1))
	}
	jsonutil.JSON(w, http.StatusTooManyRequests, StateResponse{
		State:      auth.StateUnauthenticated,
		Message:    "Too many failed sign-in attempts. Try again later.",
		RetryAfter: until,
	})
	return true
}

func (h *Handler) recordFailure(r *http.Request, key string) {
	if h.limiter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if lockedOut, until := h.limiter.RecordFailure(ctx, key); lockedOut {
		h.logger.Warn("identity sync locked out", zap.String("key", key), zap.Timep("until", until))
	}
}

func (h *Handler) clear(r *http.Request, keys ...string) {
	if h.limiter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	for _, k := range keys {
		if err := h.limiter.ClearOnSuccess(ctx, k); err != nil {
			h.logger.Warn("failed to clear rate limit", zap.String("key", k), zap.Error(err))
		}
	}
}

// returnTo is where the login page sends the user afterwards: the returnTo
// query parameter when the frontend sets one, else the admin home.
func returnTo(r *http.Request) string {
	if rt := r.URL.Query().Get("returnTo"); rt != "" {
		return rt
	}
	return "/admin"
}

func view(u *models.User) *UserView {
	return &UserView{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		Name:      u.FullName,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}
