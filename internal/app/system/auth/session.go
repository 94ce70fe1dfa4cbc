package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// DefaultSessionName is the cookie name used when none is configured.
const DefaultSessionName = "mthunzi-session"

// MinSessionKeyLen is the shortest signing key accepted in production.
const MinSessionKeyLen = 32

var (
	// ErrNoSessionKey is returned when no signing key is configured.
	ErrNoSessionKey = errors.New("session key is empty")
	// ErrWeakSessionKey is returned in production for short or placeholder keys.
	ErrWeakSessionKey = errors.New("session key is too weak for production")
)

// claimsKey is the single session value holding the signed-in user.
const claimsKey = "claims"

// claims is what the cookie remembers about a signed-in user. Everything
// except UserID and Token is a fallback for when no UserFetcher is set.
type claims struct {
	UserID   string
	Name     string
	Email    string
	Role     string
	Token    string
	IssuedAt time.Time
}

func init() {
	gob.Register(claims{})
}

// SessionManager issues, reads and clears the admin session cookie.
type SessionManager struct {
	store       *sessions.CookieStore
	logger      *zap.Logger
	name        string
	userFetcher UserFetcher
}

// NewSessionManager builds a cookie-backed SessionManager. In secure mode a
// key shorter than MinSessionKeyLen, or one that looks like a placeholder,
// is rejected; otherwise it is only logged.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if weak := weakKey(sessionKey); weak != "" {
		if secure {
			return nil, fmt.Errorf("%w: %s", ErrWeakSessionKey, weak)
		}
		logger.Warn("weak session key accepted outside production", zap.String("reason", weak))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		// The admin frontend shares the API's origin.
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.String("name", name),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge),
		zap.Bool("secure", secure))

	return &SessionManager{store: store, logger: logger, name: name}, nil
}

// SetUserFetcher makes LoadSessionUser reload the user on every request.
func (sm *SessionManager) SetUserFetcher(uf UserFetcher) {
	sm.userFetcher = uf
}

// CreateSession signs u in. A new session token is minted when u.Token is empty.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	token := u.Token
	if token == "" {
		var err error
		if token, err = newSessionToken(); err != nil {
			return fmt.Errorf("session token: %w", err)
		}
	}

	sess := sm.session(r)
	sess.Values[claimsKey] = claims{
		UserID:   u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Token:    token,
		IssuedAt: time.Now().UTC(),
	}
	return sess.Save(r, w)
}

// DestroySession clears the session and expires the cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess := sm.session(r)
	delete(sess.Values, claimsKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("failed to expire session cookie", zap.Error(err))
	}
}

// session returns the request's session, or a fresh one when the cookie
// cannot be decoded.
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}
	return sess
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var placeholderKeys = []string{
	"dev-only", "change-me", "changeme", "placeholder", "default",
	"example", "insecure", "test-key", "secret123", "password",
}

// weakKey returns why key is unfit for production, or "" when it is fine.
func weakKey(key string) string {
	if len(key) < MinSessionKeyLen {
		return fmt.Sprintf("shorter than %d characters", MinSessionKeyLen)
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderKeys {
		if strings.Contains(lower, p) {
			return fmt.Sprintf("contains placeholder text %q", p)
		}
	}
	return ""
}
