// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/normalize"
	"go.uber.org/zap"
)

// Identity is what the policy looks at: the account email and the role
// stored for it.
type Identity struct {
	Email string
	Role  string
}

// Decision is the outcome of evaluating the policy.
type Decision struct {
	State  string // auth.StateAuthorized or auth.StateDenied
	Reason string // "allow_list", "role" or "not_permitted"
}

// Authorized reports whether the decision grants admin access.
func (d Decision) Authorized() bool {
	return d.State == auth.StateAuthorized
}

// Policy is the single admin access rule: an identity is authorized when
// its email is on the allow-list or its role is a privileged role.
type Policy struct {
	emails map[string]struct{}
	roles  map[string]struct{}
}

// NewPolicy builds a policy. Emails and roles are normalized; blanks are
// ignored.
func NewPolicy(allowList, privilegedRoles []string) *Policy {
	p := &Policy{
		emails: make(map[string]struct{}),
		roles:  make(map[string]struct{}),
	}
	for _, e := range allowList {
		if e = normalize.Email(e); e != "" {
			p.emails[e] = struct{}{}
		}
	}
	for _, r := range privilegedRoles {
		if r = normalize.Role(r); r != "" {
			p.roles[r] = struct{}{}
		}
	}
	return p
}

// Evaluate decides whether id may use the admin surface.
func (p *Policy) Evaluate(id Identity) Decision {
	if email := normalize.Email(id.Email); email != "" {
		if _, ok := p.emails[email]; ok {
			return Decision{State: auth.StateAuthorized, Reason: "allow_list"}
		}
	}
	if role := normalize.Role(id.Role); role != "" {
		if _, ok := p.roles[role]; ok {
			return Decision{State: auth.StateAuthorized, Reason: "role"}
		}
	}
	return Decision{State: auth.StateDenied, Reason: "not_permitted"}
}

// Principal kinds.
const (
	KindAPIKey  = "api_key"
	KindSession = "session"
)

// Principal is the caller a guarded request runs as.
type Principal struct {
	Kind  string
	ID    string
	Name  string
	Email string
	Role  string
}

// Label is a short human-readable description used in audit events.
func (p *Principal) Label() string {
	if p.Kind == KindAPIKey {
		return "api key"
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

type ctxKey string

const principalKey ctxKey = "principal"

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored by the guard, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// Guard protects mutating routes. A request passes with the configured API
// key as a bearer token, or with a session whose identity the policy
// authorizes.
type Guard struct {
	policy *Policy
	apiKey string
	logger *zap.Logger

	// OnDenied is called when a signed-in identity fails the policy.
	OnDenied func(r *http.Request, email string)
}

// NewGuard creates a guard. An empty apiKey disables API key access.
func NewGuard(policy *Policy, apiKey string, logger *zap.Logger) *Guard {
	return &Guard{policy: policy, apiKey: apiKey, logger: logger}
}

// Policy returns the guard's policy.
func (g *Guard) Policy() *Policy {
	return g.policy
}

// Require is the guard middleware.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, signedIn := auth.CurrentUser(r)

		// A bearer that is not the API key is ignored when a session exists.
		if token, ok := auth.BearerToken(r); ok {
			if auth.MatchAPIKey(g.apiKey, token) {
				p := &Principal{Kind: KindAPIKey, ID: "api_key", Name: "API key"}
				ledger.SetActor(r.Context(), p.Kind, p.ID, p.Name)
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
				return
			}
			if !signedIn {
				g.logger.Warn("guard: invalid api key",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method))
				ledger.SetErrorMessage(r.Context(), "invalid api key")
				jsonutil.JSON(w, http.StatusUnauthorized, map[string]string{
					"state":   auth.StateUnauthenticated,
					"message": "Invalid API key",
				})
				return
			}
		}

		if !signedIn {
			jsonutil.JSON(w, http.StatusUnauthorized, map[string]string{
				"state":    auth.StateUnauthenticated,
				"message":  "Authentication required",
				"loginUrl": auth.LoginURL(returnTarget(r)),
			})
			return
		}
		ledger.SetActor(r.Context(), KindSession, user.ID, user.Name)

		d := g.policy.Evaluate(Identity{Email: user.Email, Role: user.Role})
		if !d.Authorized() {
			g.logger.Info("guard: access denied",
				zap.String("user_id", user.ID),
				zap.String("email", user.Email),
				zap.String("role", user.Role),
				zap.String("path", r.URL.Path))
			if g.OnDenied != nil {
				g.OnDenied(r, user.Email)
			}
			jsonutil.JSON(w, http.StatusForbidden, map[string]string{
				"state":   auth.StateDenied,
				"message": "Access denied",
			})
			return
		}

		p := &Principal{
			Kind:  KindSession,
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  strings.ToLower(user.Role),
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// returnTarget is where the login page should send the user back to. API
// callers come from the admin screens, so a same-host Referer is preferred.
func returnTarget(r *http.Request) string {
	if ref := r.Referer(); ref != "" {
		u, err := url.Parse(ref)
		if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host == r.Host {
			return u.RequestURI()
		}
	}
	return "/admin"
}
