package authenticator

import (
	"context"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/pkg/api"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"golang.org/x/oauth2"
)

// oauth2Provider holds the parts shared by every authorization code provider.
type oauth2Provider struct {
	config oauth2.Config

	name          string
	userInfoURL   string
	defaultScopes []string
	pkce          bool
	authOpts      []oauth2.AuthCodeOption
}

type endpoints struct {
	authURL     string
	tokenURL    string
	userInfoURL string
}

func newOAuth2Provider(
	name string,
	cfg config.OAuth2Config,
	defaults endpoints,
	defaultScopes []string,
	authStyle oauth2.AuthStyle,
) *oauth2Provider {
	authURL := valueOr(cfg.AuthURL, defaults.authURL)
	tokenURL := valueOr(cfg.TokenURL, defaults.tokenURL)

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	return &oauth2Provider{
		name:          name,
		userInfoURL:   valueOr(cfg.UserInfoURL, defaults.userInfoURL),
		defaultScopes: defaultScopes,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: authStyle,
			},
		},
	}
}

func (p *oauth2Provider) Name() string {
	return p.name
}

// DefaultScopes returns the built-in scopes of the provider. The configured scopes, when set,
// replace them on the consent URL.
func (p *oauth2Provider) DefaultScopes() []string {
	return append([]string(nil), p.defaultScopes...)
}

func (p *oauth2Provider) RequiresPKCE() bool {
	return p.pkce
}

func (p *oauth2Provider) AuthorizationURL(state string, scopes []string, opts ...oauth2.AuthCodeOption) string {
	cfg := p.config
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}

	allOpts := append(append([]oauth2.AuthCodeOption(nil), p.authOpts...), opts...)
	return cfg.AuthCodeURL(state, allOpts...)
}

func (p *oauth2Provider) ExchangeCode(
	ctx context.Context, code string, opts ...oauth2.AuthCodeOption,
) (*oauth2.Token, error) {
	token, err := p.config.Exchange(p.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, newTokenExchangeError(p.name, err)
	}

	return token, nil
}

func (p *oauth2Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := p.config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, newTokenExchangeError(p.name, err)
	}

	return token, nil
}

// fetchUserInfo calls the user-info endpoint and returns the decoded json object.
func (p *oauth2Provider) fetchUserInfo(ctx context.Context, accessToken string, query api.Parameter) (api.JSON, error) {
	resp, err := api.New(p.userInfoURL).
		Header("Accept", "application/json").
		Query(query).
		GET(ctx, api.OAuth2("Bearer", accessToken))
	if err != nil {
		return nil, &ProfileFetchError{Provider: p.name, Err: err}
	}

	if !resp.OK() {
		return nil, &ProfileFetchError{Provider: p.name, StatusCode: resp.Code, Status: resp.Status}
	}

	body, err := resp.JSON()
	if err != nil {
		return nil, &ProfileFetchError{Provider: p.name, Err: err}
	}

	return body, nil
}

// clientContext makes x/oauth2 use the http client configured for this request.
func (p *oauth2Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, xcontext.HTTPClient(ctx))
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
