package authenticator

import (
	"context"
	"errors"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"golang.org/x/oauth2"
)

const Google = "google"

var googleEndpoints = endpoints{
	authURL:     "https://accounts.google.com/o/oauth2/v2/auth",
	tokenURL:    "https://oauth2.googleapis.com/token",
	userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
}

type googleProvider struct {
	*oauth2Provider

	verifier *oidc.IDTokenVerifier
}

// NewGoogle creates the Google provider. When cfg.Issuer is set, the endpoints are discovered
// from the issuer and every id_token returned by the code exchange is verified.
func NewGoogle(ctx context.Context, cfg config.OAuth2Config) (*googleProvider, error) {
	defaults := googleEndpoints

	var verifier *oidc.IDTokenVerifier
	if cfg.Issuer != "" {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, xcontext.HTTPClient(ctx)), cfg.Issuer)
		if err != nil {
			return nil, err
		}

		defaults.authURL = provider.Endpoint().AuthURL
		defaults.tokenURL = provider.Endpoint().TokenURL
		if provider.UserInfoEndpoint() != "" {
			defaults.userInfoURL = provider.UserInfoEndpoint()
		}

		verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	}

	p := newOAuth2Provider(Google, cfg, defaults,
		[]string{"openid", "email", "profile"}, oauth2.AuthStyleInParams)
	p.authOpts = []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}

	return &googleProvider{oauth2Provider: p, verifier: verifier}, nil
}

func (p *googleProvider) ExchangeCode(
	ctx context.Context, code string, opts ...oauth2.AuthCodeOption,
) (*oauth2.Token, error) {
	token, err := p.oauth2Provider.ExchangeCode(ctx, code, opts...)
	if err != nil {
		return nil, err
	}

	if p.verifier != nil {
		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			return nil, &TokenExchangeError{
				Provider: p.name, ErrorCode: "invalid_id_token", Err: errors.New("no id_token field in oauth2 token"),
			}
		}

		if _, err := p.verifier.Verify(oidc.ClientContext(ctx, xcontext.HTTPClient(ctx)), rawIDToken); err != nil {
			return nil, &TokenExchangeError{Provider: p.name, ErrorCode: "invalid_id_token", Err: err}
		}
	}

	return token, nil
}

type googleUser struct {
	ID      string `json:"id"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *googleProvider) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	body, err := p.fetchUserInfo(ctx, accessToken, nil)
	if err != nil {
		return Profile{}, err
	}

	var user googleUser
	if err := body.Decode(&user); err != nil {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: err}
	}

	// The OIDC userinfo endpoint names the id "sub".
	if user.ID == "" {
		user.ID = user.Sub
	}

	if user.ID == "" {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: errors.New("missing user id")}
	}

	return Profile{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Avatar:   user.Picture,
		Provider: p.name,
	}, nil
}
