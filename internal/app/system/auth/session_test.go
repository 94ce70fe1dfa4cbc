package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const strongKey = "xK8nP2mQ9rT5vW7yB3cF6hJ0lN4sU1wZ"

func newManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(strongKey, "", "", time.Hour, false, zap.NewNop())
	require.NoError(t, err)
	return sm
}

func TestNewSessionManager(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secure  bool
		wantErr error
	}{
		{"strong key dev", strongKey, false, nil},
		{"strong key prod", strongKey, true, nil},
		{"empty key", "", false, ErrNoSessionKey},
		{"short key dev", "short", false, nil},
		{"short key prod", "short", true, ErrWeakSessionKey},
		{"placeholder key prod", "dev-only-session-key-not-for-production", true, ErrWeakSessionKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, err := NewSessionManager(tt.key, "", "", time.Hour, tt.secure, zap.NewNop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultSessionName, sm.name)
		})
	}
}

func TestWeakKey(t *testing.T) {
	assert.Empty(t, weakKey(strongKey))
	assert.Contains(t, weakKey("short"), "shorter than")
	assert.Contains(t, weakKey("please-change-me-before-deploying-this"), "change-me")
	assert.Contains(t, weakKey("PASSWORD-PASSWORD-PASSWORD-PASSWORD"), "password")
}

type stubFetcher map[string]*SessionUser

func (f stubFetcher) FetchUser(_ context.Context, id string) *SessionUser {
	u, ok := f[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// signIn creates a session for u and returns a request carrying its cookie.
func signIn(t *testing.T, sm *SessionManager, u SessionUser) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/api/auth/sync", nil), u))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// load runs LoadSessionUser and returns the user the next handler saw.
func load(sm *SessionManager, req *http.Request) (*SessionUser, *httptest.ResponseRecorder) {
	var got *SessionUser
	rec := httptest.NewRecorder()
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r)
	})).ServeHTTP(rec, req)
	return got, rec
}

func TestLoadSessionUser_FromClaims(t *testing.T) {
	sm := newManager(t)
	id := primitive.NewObjectID().Hex()
	req := signIn(t, sm, SessionUser{ID: id, Name: "Thandi", Email: "thandi@example.org", Role: "user"})

	got, _ := load(sm, req)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "thandi@example.org", got.Email)
	assert.Equal(t, "user", got.Role)
	assert.NotEmpty(t, got.Token, "a token is minted when none is supplied")
}

func TestLoadSessionUser_FetcherSeesRoleChange(t *testing.T) {
	sm := newManager(t)
	id := primitive.NewObjectID().Hex()
	req := signIn(t, sm, SessionUser{ID: id, Email: "thandi@example.org", Role: "user", Token: "tok-1"})

	sm.SetUserFetcher(stubFetcher{id: {ID: id, Email: "thandi@example.org", Role: "admin"}})

	got, _ := load(sm, req)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "tok-1", got.Token)
}

func TestLoadSessionUser_MissingUserIsSignedOut(t *testing.T) {
	sm := newManager(t)
	req := signIn(t, sm, SessionUser{ID: primitive.NewObjectID().Hex()})
	sm.SetUserFetcher(stubFetcher{})

	got, rec := load(sm, req)
	assert.Nil(t, got)
	assert.NotEmpty(t, rec.Result().Cookies(), "the cleared session should be written back")
}

func TestLoadSessionUser_NoCookie(t *testing.T) {
	got, _ := load(newManager(t), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, got)
}

func TestLoadSessionUser_ForeignKey(t *testing.T) {
	other, err := NewSessionManager("another-strong-key-0123456789abcdef", "", "", time.Hour, false, zap.NewNop())
	require.NoError(t, err)
	req := signIn(t, other, SessionUser{ID: primitive.NewObjectID().Hex()})

	got, _ := load(newManager(t), req)
	assert.Nil(t, got, "a cookie signed with another key must not load")
}

func TestDestroySession(t *testing.T) {
	sm := newManager(t)
	rec := httptest.NewRecorder()
	sm.DestroySession(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSessionUser_UserID(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid, (&SessionUser{ID: oid.Hex()}).UserID())
	assert.True(t, (&SessionUser{ID: "invalid"}).UserID().IsZero())
	assert.True(t, (&SessionUser{}).UserID().IsZero())
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := CurrentUser(req)
	assert.False(t, ok)

	u := &SessionUser{ID: primitive.NewObjectID().Hex(), Email: "admin@example.org"}
	got, ok := CurrentUser(WithTestUser(req, u))
	assert.True(t, ok)
	assert.Same(t, u, got)
}

func TestLoginURL(t *testing.T) {
	tests := []struct {
		returnTo string
		want     string
	}{
		{"/admin/projects", "/login?return=%2Fadmin%2Fprojects"},
		{"/admin?tab=voices", "/login?return=%2Fadmin%3Ftab%3Dvoices"},
		{"", "/login?return=%2F"},
		{"https://evil.example", "/login?return=%2F"},
		{"//evil.example/x", "/login?return=%2F"},
		{`/\evil.example`, "/login?return=%2F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LoginURL(tt.returnTo), "LoginURL(%q)", tt.returnTo)
	}
}

// cookieErr implements securecookie.Error.
type cookieErr struct {
	msg    string
	decode bool
}

func (e cookieErr) Error() string    { return e.msg }
func (e cookieErr) IsDecode() bool   { return e.decode }
func (e cookieErr) IsUsage() bool    { return false }
func (e cookieErr) IsInternal() bool { return !e.decode }
func (e cookieErr) Cause() error     { return nil }

func TestCookieFault(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		level  zapcore.Level
		reason string
	}{
		{"expired", cookieErr{"securecookie: expired timestamp", true}, zapcore.DebugLevel, "expired"},
		{"bad mac", cookieErr{"securecookie: the value is not valid", true}, zapcore.WarnLevel, "mac_invalid"},
		{"hash", cookieErr{"hash key is not set", true}, zapcore.WarnLevel, "mac_invalid"},
		{"base64", cookieErr{"base64 decode failed", true}, zapcore.InfoLevel, "undecodable"},
		{"internal", cookieErr{"encoder failure", false}, zapcore.ErrorLevel, "store"},
		{"plain error", errors.New("boom"), zapcore.ErrorLevel, "store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, reason := cookieFault(tt.err)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
