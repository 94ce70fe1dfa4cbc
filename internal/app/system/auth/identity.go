package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mthunzitrust/mthunzisite/internal/app/system/normalize"
	"golang.org/x/oauth2"
)

// Access states reported to the admin frontend.
const (
	StateChecking        = "checking"
	StateVerifying       = "verifying"
	StateAuthorized      = "authorized"
	StateDenied          = "denied"
	StateUnauthenticated = "unauthenticated"
)

// DefaultUserInfoURL is Google's OpenID Connect userinfo endpoint.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	// ErrInvalidToken means the provider rejected the access token.
	ErrInvalidToken = errors.New("identity provider rejected the token")
	// ErrUnverifiedEmail means the provider has not verified the account email.
	ErrUnverifiedEmail = errors.New("identity provider email is not verified")
)

// ProviderIdentity is what the identity provider says about the caller.
type ProviderIdentity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// IdentityProvider verifies a provider access token and returns the identity
// behind it.
type IdentityProvider interface {
	Verify(ctx context.Context, accessToken string) (*ProviderIdentity, error)
}

// UserInfoProvider verifies tokens by calling an OAuth2 userinfo endpoint
// with the token as bearer credentials.
type UserInfoProvider struct {
	URL     string
	Timeout time.Duration
	// Client is the base client; nil uses http.DefaultClient.
	Client *http.Client
}

// NewUserInfoProvider returns a provider for the given userinfo endpoint.
func NewUserInfoProvider(url string) *UserInfoProvider {
	if url == "" {
		url = DefaultUserInfoURL
	}
	return &UserInfoProvider{URL: url, Timeout: 10 * time.Second}
}

type userInfo struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify implements IdentityProvider.
func (p *UserInfoProvider) Verify(ctx context.Context, accessToken string) (*ProviderIdentity, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	if p.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.Client)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("userinfo request: unexpected status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("userinfo decode: %w", err)
	}

	email := normalize.Email(info.Email)
	if email == "" {
		return nil, ErrInvalidToken
	}
	if v := firstBool(info.EmailVerified, info.VerifiedEmail); v != nil && !*v {
		return nil, ErrUnverifiedEmail
	}

	subject := info.Sub
	if subject == "" {
		subject = info.ID
	}
	return &ProviderIdentity{
		Subject:   subject,
		Email:     email,
		Name:      normalize.Name(info.Name),
		AvatarURL: info.Picture,
	}, nil
}

func firstBool(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
