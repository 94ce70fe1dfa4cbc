package authsync

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mthunzitrust/mthunzisite/internal/app/store/ratelimit"
	userstore "github.com/mthunzitrust/mthunzisite/internal/app/store/users"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"github.com/mthunzitrust/mthunzisite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// stubProvider maps access tokens to identities.
type stubProvider struct {
	identities map[string]*auth.ProviderIdentity
	err        error
}

func (p stubProvider) Verify(_ context.Context, token string) (*auth.ProviderIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	id, ok := p.identities[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}

type fixture struct {
	db       *mongo.Database
	users    *userstore.Store
	sessions *auth.SessionManager
	handler  *Handler
	router   http.Handler
}

func newFixture(t *testing.T, provider auth.IdentityProvider) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager("this-is-a-32-character-long-key!", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	sm.SetUserFetcher(userstore.NewFetcher(db, logger))

	users := userstore.New(db)
	policy := authz.NewPolicy([]string{"director@mthunzitrust.org"}, []string{"admin", "superadmin"})
	limiter := ratelimit.New(db, 2, time.Minute, time.Minute)
	h := NewHandler(provider, users, sm, policy, limiter, auditlog.New(nil, logger, auditlog.Config{}), logger)

	return &fixture{
		db:       db,
		users:    users,
		sessions: sm,
		handler:  h,
		router:   sm.LoadSessionUser(Routes(h)),
	}
}

func (f *fixture) sync(t *testing.T, token string) (*testutil.ResponseRecorder, StateResponse) {
	t.Helper()
	req := testutil.NewRequest(http.MethodPost, "/sync")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var resp StateResponse
	rec.Decode(t, &resp)
	return rec, resp
}

func identities() stubProvider {
	return stubProvider{identities: map[string]*auth.ProviderIdentity{
		"director-token": {Subject: "1", Email: "director@mthunzitrust.org", Name: "Chikondi Banda"},
		"admin-token":    {Subject: "2", Email: "admin@mthunzitrust.org", Name: "Site Admin"},
		"visitor-token":  {Subject: "3", Email: "visitor@example.com", Name: "Visitor"},
	}}
}

func TestSync_ProviderNotConfigured(t *testing.T) {
	f := newFixture(t, nil)
	rec, resp := f.sync(t, "anything")
	rec.AssertStatus(t, http.StatusServiceUnavailable)
	if resp.State != auth.StateChecking {
		t.Errorf("state = %q, want %q", resp.State, auth.StateChecking)
	}
}

func TestSync_MissingToken(t *testing.T) {
	f := newFixture(t, identities())
	rec, resp := f.sync(t, "")
	rec.AssertStatus(t, http.StatusUnauthorized)
	if resp.State != auth.StateUnauthenticated {
		t.Errorf("state = %q, want %q", resp.State, auth.StateUnauthenticated)
	}
	if resp.LoginURL != "/login?return=%2Fadmin" {
		t.Errorf("loginUrl = %q", resp.LoginURL)
	}
}

func TestSync_AllowListed(t *testing.T) {
	f := newFixture(t, identities())
	rec, resp := f.sync(t, "director-token")
	rec.AssertStatus(t, http.StatusOK)

	if resp.State != auth.StateAuthorized {
		t.Fatalf("state = %q, want %q", resp.State, auth.StateAuthorized)
	}
	if resp.User == nil || resp.User.Email != "director@mthunzitrust.org" || resp.User.Role != models.RoleUser {
		t.Errorf("user = %+v, want the synced director with default role", resp.User)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("authorized sync should set a session cookie")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := f.users.GetByEmail(ctx, "director@mthunzitrust.org")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if u.FullName != "Chikondi Banda" {
		t.Errorf("full_name = %q", u.FullName)
	}
}

func TestSync_PrivilegedRole(t *testing.T) {
	f := newFixture(t, identities())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := f.users.EnsureRole(ctx, "admin@mthunzitrust.org", "Site Admin", models.RoleAdmin); err != nil {
		t.Fatalf("EnsureRole() error = %v", err)
	}

	rec, resp := f.sync(t, "admin-token")
	rec.AssertStatus(t, http.StatusOK)
	if resp.State != auth.StateAuthorized || resp.User.Role != models.RoleAdmin {
		t.Errorf("resp = %+v, want authorized admin", resp)
	}
}

func TestSync_Denied(t *testing.T) {
	f := newFixture(t, identities())
	rec, resp := f.sync(t, "visitor-token")
	rec.AssertStatus(t, http.StatusForbidden)
	if resp.State != auth.StateDenied {
		t.Errorf("state = %q, want %q", resp.State, auth.StateDenied)
	}

	// The user record exists so an admin can promote it later.
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := f.users.GetByEmail(ctx, "visitor@example.com"); err != nil {
		t.Errorf("denied identity should still be recorded: %v", err)
	}
}

func TestSync_DisabledUserDenied(t *testing.T) {
	f := newFixture(t, identities())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := f.users.EnsureRole(ctx, "admin@mthunzitrust.org", "Site Admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("EnsureRole() error = %v", err)
	}
	if _, _, err := f.users.SetStatus(ctx, u.ID, models.StatusDisabled); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	rec, _ := f.sync(t, "admin-token")
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestSync_InvalidTokenRateLimited(t *testing.T) {
	f := newFixture(t, identities())

	for i := 0; i < 2; i++ {
		rec, _ := f.sync(t, "forged-token")
		rec.AssertStatus(t, http.StatusUnauthorized)
	}

	rec, resp := f.sync(t, "forged-token")
	rec.AssertStatus(t, http.StatusTooManyRequests)
	if resp.RetryAfter == nil {
		t.Error("retryAfter should be set while locked out")
	}
}

func TestSync_ProviderDown(t *testing.T) {
	f := newFixture(t, stubProvider{err: errors.New("connection refused")})
	rec, resp := f.sync(t, "director-token")
	rec.AssertStatus(t, http.StatusServiceUnavailable)
	if resp.State != auth.StateChecking {
		t.Errorf("state = %q, want %q", resp.State, auth.StateChecking)
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t, identities())

	tests := []struct {
		name  string
		user  *testutil.TestUser
		state string
	}{
		{"no session", nil, auth.StateUnauthenticated},
		{"admin", ptr(testutil.AdminUser()), auth.StateAuthorized},
		{"regular user", ptr(testutil.RegularUser()), auth.StateDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, "/me")
			if tt.user != nil {
				req = testutil.WithUser(req, *tt.user)
			}
			rec := testutil.NewRecorder()
			f.handler.Me(rec, req)
			rec.AssertStatus(t, http.StatusOK)

			var resp StateResponse
			rec.Decode(t, &resp)
			if resp.State != tt.state {
				t.Errorf("state = %q, want %q", resp.State, tt.state)
			}
		})
	}
}

func TestSyncThenMe_SessionRoundTrip(t *testing.T) {
	f := newFixture(t, identities())
	rec, _ := f.sync(t, "director-token")
	rec.AssertStatus(t, http.StatusOK)

	req := testutil.NewRequest(http.MethodGet, "/me")
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	me := testutil.NewRecorder()
	f.router.ServeHTTP(me, req)

	var resp StateResponse
	me.Decode(t, &resp)
	if resp.State != auth.StateAuthorized || resp.User == nil || resp.User.Email != "director@mthunzitrust.org" {
		t.Errorf("me = %+v, want authorized director", resp)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t, identities())
	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", testutil.AdminUser())
	rec := testutil.NewRecorder()
	f.handler.Logout(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var resp StateResponse
	rec.Decode(t, &resp)
	if resp.State != auth.StateUnauthenticated {
		t.Errorf("state = %q, want %q", resp.State, auth.StateUnauthenticated)
	}
}

func ptr[T any](v T) *T { return &v }
