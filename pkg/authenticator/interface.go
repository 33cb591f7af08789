package authenticator

import (
	"context"

	"golang.org/x/oauth2"
)

// Profile is the normalized identity returned by a provider's user-info endpoint.
type Profile struct {
	ID       string
	Email    string
	Name     string
	Avatar   string
	Provider string
}

type Provider interface {
	Name() string
	DefaultScopes() []string

	// RequiresPKCE reports whether authorization requests must carry a S256 code challenge.
	RequiresPKCE() bool

	// AuthorizationURL builds the consent screen url. The default scopes are used when scopes is
	// empty.
	AuthorizationURL(state string, scopes []string, opts ...oauth2.AuthCodeOption) string

	ExchangeCode(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)

	// RefreshAccessToken returns ErrNotSupported if the provider has no refresh flow.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}
