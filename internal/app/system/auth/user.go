package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SessionUser is the signed-in user carried in the request context.
type SessionUser struct {
	ID        string
	Name      string
	Email     string
	Role      string
	AvatarURL string
	Token     string
}

// UserID returns ID as an ObjectID, or the zero ObjectID when ID is not one.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// UserFetcher loads the current state of a user. It returns nil when the
// user no longer exists or is disabled.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey struct{}

// CurrentUser returns the signed-in user, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok
}

// WithTestUser returns r with u signed in. Tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

// LoadSessionUser is middleware that puts the session's user into the
// request context. A user the fetcher no longer returns is signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			level, reason := cookieFault(err)
			if ce := sm.logger.Check(level, "session cookie rejected"); ce != nil {
				ce.Write(zap.String("reason", reason),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
			}
		}

		c, ok := sess.Values[claimsKey].(claims)
		if !ok || c.UserID == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sm.userFetcher == nil {
			next.ServeHTTP(w, withUser(r, &SessionUser{
				ID: c.UserID, Name: c.Name, Email: c.Email, Role: c.Role, Token: c.Token,
			}))
			return
		}

		u := sm.userFetcher.FetchUser(r.Context(), c.UserID)
		if u == nil {
			sm.logger.Info("session dropped: user missing or disabled",
				zap.String("user_id", c.UserID))
			delete(sess.Values, claimsKey)
			_ = sess.Save(r, w)
			next.ServeHTTP(w, r)
			return
		}
		u.Token = c.Token
		next.ServeHTTP(w, withUser(r, u))
	})
}

// LoginURL returns the frontend login route with returnTo as its return
// parameter. Anything but a same-site path falls back to "/".
func LoginURL(returnTo string) string {
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.HasPrefix(returnTo, `/\`) {
		returnTo = "/"
	}
	return "/login?return=" + url.QueryEscape(returnTo)
}

// cookieFault maps a cookie decode error to a log level and a short reason.
// Expired cookies are routine; a bad MAC may be tampering.
func cookieFault(err error) (zapcore.Level, string) {
	scErr, ok := err.(securecookie.Error)
	if !ok || !scErr.IsDecode() {
		return zapcore.ErrorLevel, "store"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return zapcore.DebugLevel, "expired"
	case strings.Contains(msg, "not valid") || strings.Contains(msg, "mac") || strings.Contains(msg, "hash"):
		return zapcore.WarnLevel, "mac_invalid"
	default:
		return zapcore.InfoLevel, "undecodable"
	}
}
