package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser is a signed-in identity for handler tests.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func persona(name, email, role string) TestUser {
	return TestUser{ID: primitive.NewObjectID().Hex(), Name: name, Email: email, Role: role}
}

// AdminUser returns a fresh user holding the admin role.
func AdminUser() TestUser {
	return persona("Site Admin", "admin@mthunzi.test", models.RoleAdmin)
}

// RegularUser returns a fresh user with the default role, which the guard
// rejects unless the email is allow-listed.
func RegularUser() TestUser {
	return persona("Visitor", "visitor@mthunzi.test", models.RoleUser)
}

// WithUser signs user in on r, both as the session user and as the guard's
// principal, so handlers can be called with or without the middleware.
func WithUser(r *http.Request, user TestUser) *http.Request {
	r = auth.WithTestUser(r, &auth.SessionUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
	return r.WithContext(authz.WithPrincipal(r.Context(), &authz.Principal{
		Kind:  authz.KindSession,
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}))
}

// NewRequest creates a request with no body.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request carrying body as JSON.
func NewJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a bodiless request signed in as user.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(NewRequest(method, target), user)
}

type reporter interface {
	Helper()
	Errorf(string, ...any)
	Fatalf(string, ...any)
}

// ResponseRecorder adds JSON assertions to httptest.ResponseRecorder.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus fails t when the status differs, printing the body.
func (r *ResponseRecorder) AssertStatus(t reporter, want int) {
	t.Helper()
	if r.Code != want {
		t.Errorf("status = %d, want %d; body: %s", r.Code, want, r.Body.String())
	}
}

// AssertContains fails t when the raw body lacks want.
func (r *ResponseRecorder) AssertContains(t reporter, want string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), want) {
		t.Errorf("body %s does not contain %q", r.Body.String(), want)
	}
}

// Decode unmarshals the JSON body into v or stops the test.
func (r *ResponseRecorder) Decode(t reporter, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", r.Body.String(), err)
	}
}

// AssertMessage fails t when the body's "message" differs from want.
func (r *ResponseRecorder) AssertMessage(t reporter, want string) {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	r.Decode(t, &body)
	if body.Message != want {
		t.Errorf("message = %q, want %q", body.Message, want)
	}
}
