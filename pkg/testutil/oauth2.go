package testutil

import (
	"context"
	"fmt"

	"github.com/kizuna-social/backend/pkg/authenticator"
	"golang.org/x/oauth2"
)

type MockProvider struct {
	ProviderName string
	PKCE         bool

	AuthorizationURLFunc   func(state string, scopes []string, opts ...oauth2.AuthCodeOption) string
	ExchangeCodeFunc       func(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	FetchProfileFunc       func(ctx context.Context, accessToken string) (authenticator.Profile, error)
	RefreshAccessTokenFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{ProviderName: name}
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) DefaultScopes() []string {
	return []string{"profile"}
}

func (m *MockProvider) RequiresPKCE() bool {
	return m.PKCE
}

func (m *MockProvider) AuthorizationURL(state string, scopes []string, opts ...oauth2.AuthCodeOption) string {
	if m.AuthorizationURLFunc != nil {
		return m.AuthorizationURLFunc(state, scopes, opts...)
	}

	return fmt.Sprintf("https://%s.example.com/authorize?state=%s", m.ProviderName, state)
}

func (m *MockProvider) ExchangeCode(
	ctx context.Context, code string, opts ...oauth2.AuthCodeOption,
) (*oauth2.Token, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code, opts...)
	}

	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh-" + code}, nil
}

func (m *MockProvider) FetchProfile(ctx context.Context, accessToken string) (authenticator.Profile, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, accessToken)
	}

	return authenticator.Profile{}, nil
}

func (m *MockProvider) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if m.RefreshAccessTokenFunc != nil {
		return m.RefreshAccessTokenFunc(ctx, refreshToken)
	}

	return nil, authenticator.ErrNotSupported
}
