package authenticator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/kizuna-social/backend/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeServer struct {
	*httptest.Server

	tokenStatus    int
	tokenBody      map[string]any
	userInfoStatus int
	userInfoBody   map[string]any

	lastTokenForm url.Values
	lastBasicUser string
	lastAuthz     string
	lastQuery     url.Values
}

func newFakeServer(t *testing.T) *fakeServer {
	s := &fakeServer{
		tokenStatus:    http.StatusOK,
		userInfoStatus: http.StatusOK,
		tokenBody: map[string]any{
			"access_token":  "provider-access",
			"refresh_token": "provider-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		s.lastTokenForm = r.PostForm
		s.lastBasicUser, _, _ = r.BasicAuth()
		writeJSON(w, s.tokenStatus, s.tokenBody)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		s.lastAuthz = r.Header.Get("Authorization")
		s.lastQuery = r.URL.Query()
		writeJSON(w, s.userInfoStatus, s.userInfoBody)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *fakeServer) config() config.OAuth2Config {
	return config.OAuth2Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/oauth/callback/test",
		AuthURL:      s.URL + "/authorize",
		TokenURL:     s.URL + "/token",
		UserInfoURL:  s.URL + "/userinfo",
	}
}

func TestGitHub_AuthorizationURL(t *testing.T) {
	server := newFakeServer(t)
	p := NewGitHub(server.config())

	u, err := url.Parse(p.AuthorizationURL("state-1", nil))
	require.NoError(t, err)
	require.Equal(t, server.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "read:user user:email", q.Get("scope"))
	require.Equal(t, "true", q.Get("allow_signup"))
	require.Equal(t, "http://localhost:8080/oauth/callback/test", q.Get("redirect_uri"))

	u, err = url.Parse(p.AuthorizationURL("state-1", []string{"read:user"}))
	require.NoError(t, err)
	require.Equal(t, "read:user", u.Query().Get("scope"))
}

func TestGitHub_ConfiguredScopes(t *testing.T) {
	server := newFakeServer(t)
	cfg := server.config()
	cfg.Scopes = []string{"read:org"}
	p := NewGitHub(cfg)

	require.Equal(t, []string{"read:user", "user:email"}, p.DefaultScopes())

	u, err := url.Parse(p.AuthorizationURL("state-1", nil))
	require.NoError(t, err)
	require.Equal(t, "read:org", u.Query().Get("scope"))
}

func TestGitHub_ExchangeAndProfile(t *testing.T) {
	server := newFakeServer(t)
	server.userInfoBody = map[string]any{"id": 583231, "login": "octocat", "name": nil, "email": nil}
	p := NewGitHub(server.config())

	token, err := p.ExchangeCode(context.Background(), "code-1")
	require.NoError(t, err)
	require.Equal(t, "provider-access", token.AccessToken)
	require.Equal(t, "code-1", server.lastTokenForm.Get("code"))
	require.Equal(t, "client-secret", server.lastTokenForm.Get("client_secret"))

	profile, err := p.FetchProfile(context.Background(), token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "Bearer provider-access", server.lastAuthz)
	require.Equal(t, Profile{
		ID:       "583231",
		Email:    "octocat@github.com",
		Name:     "octocat",
		Provider: GitHub,
	}, profile)

	_, err = p.RefreshAccessToken(context.Background(), "refresh")
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestGitHub_ErrorInSuccessfulResponse(t *testing.T) {
	server := newFakeServer(t)
	server.tokenBody = map[string]any{"error": "bad_verification_code"}
	p := NewGitHub(server.config())

	_, err := p.ExchangeCode(context.Background(), "code-1")
	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, GitHub, exchangeErr.Provider)
	require.Equal(t, "bad_verification_code", exchangeErr.ErrorCode)
}

func TestExchangeCode_Non2xx(t *testing.T) {
	server := newFakeServer(t)
	server.tokenStatus = http.StatusUnauthorized
	server.tokenBody = map[string]any{"error": "invalid_client"}
	p := NewLine(server.config())

	_, err := p.ExchangeCode(context.Background(), "code-1")
	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, Line, exchangeErr.Provider)
	require.Equal(t, http.StatusUnauthorized, exchangeErr.StatusCode)
	require.Equal(t, "invalid_client", exchangeErr.ErrorCode)
}

func TestFetchProfile_Non2xx(t *testing.T) {
	server := newFakeServer(t)
	server.userInfoStatus = http.StatusForbidden
	p := NewLine(server.config())

	_, err := p.FetchProfile(context.Background(), "token")
	var fetchErr *ProfileFetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
}

func TestX_PKCEAndProfile(t *testing.T) {
	server := newFakeServer(t)
	server.userInfoBody = map[string]any{
		"data": map[string]any{"id": "42", "name": "Jack", "username": "jack", "profile_image_url": "http://img"},
	}
	p := NewX(server.config())
	require.True(t, p.RequiresPKCE())

	verifier := oauth2.GenerateVerifier()
	u, err := url.Parse(p.AuthorizationURL("state-1", nil, oauth2.S256ChallengeOption(verifier)))
	require.NoError(t, err)
	require.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), u.Query().Get("code_challenge"))
	require.Equal(t, "tweet.read users.read", u.Query().Get("scope"))

	_, err = p.ExchangeCode(context.Background(), "code-1", oauth2.VerifierOption(verifier))
	require.NoError(t, err)
	require.Equal(t, verifier, server.lastTokenForm.Get("code_verifier"))
	require.Equal(t, "client-id", server.lastBasicUser)
	require.Empty(t, server.lastTokenForm.Get("client_secret"))

	profile, err := p.FetchProfile(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, "id,name,username,profile_image_url,created_at", server.lastQuery.Get("user.fields"))
	require.Equal(t, Profile{ID: "42", Email: "jack@twitter.com", Name: "Jack", Avatar: "http://img", Provider: X}, profile)
}

func TestLine_RefreshAndProfile(t *testing.T) {
	server := newFakeServer(t)
	server.userInfoBody = map[string]any{"userId": "U123", "displayName": "Line User", "pictureUrl": "http://pic"}
	p := NewLine(server.config())

	token, err := p.RefreshAccessToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "refresh_token", server.lastTokenForm.Get("grant_type"))
	require.Equal(t, "old-refresh", server.lastTokenForm.Get("refresh_token"))
	require.Equal(t, "provider-refresh", token.RefreshToken)

	profile, err := p.FetchProfile(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, "U123@line.me", profile.Email)
	require.Equal(t, "Line User", profile.Name)
}

func TestGoogle_Profile(t *testing.T) {
	server := newFakeServer(t)
	server.userInfoBody = map[string]any{"id": "g-1", "email": "a@example.com", "name": "A", "picture": "http://p"}
	p, err := NewGoogle(context.Background(), server.config())
	require.NoError(t, err)

	u, err := url.Parse(p.AuthorizationURL("s", nil))
	require.NoError(t, err)
	require.Equal(t, "offline", u.Query().Get("access_type"))
	require.Equal(t, "consent", u.Query().Get("prompt"))
	require.Equal(t, "openid email profile", u.Query().Get("scope"))

	profile, err := p.FetchProfile(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, Profile{ID: "g-1", Email: "a@example.com", Name: "A", Avatar: "http://p", Provider: Google}, profile)
}

func TestGoogle_OIDCDiscovery(t *testing.T) {
	server := newFakeServer(t)
	discovery := httptest.NewServer(nil)
	discovery.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                 discovery.URL,
			"authorization_endpoint": server.URL + "/authorize",
			"token_endpoint":         server.URL + "/token",
			"userinfo_endpoint":      server.URL + "/userinfo",
			"jwks_uri":               discovery.URL + "/keys",
		})
	})
	defer discovery.Close()

	cfg := server.config()
	cfg.AuthURL, cfg.TokenURL, cfg.UserInfoURL = "", "", ""
	cfg.Issuer = discovery.URL

	p, err := NewGoogle(context.Background(), cfg)
	require.NoError(t, err)

	u, err := url.Parse(p.AuthorizationURL("s", nil))
	require.NoError(t, err)
	require.Equal(t, server.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)

	// The token response carries no id_token, so the exchange is rejected.
	_, err = p.ExchangeCode(context.Background(), "code-1")
	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, "invalid_id_token", exchangeErr.ErrorCode)

	server.tokenBody["id_token"] = "not-a-jwt"
	_, err = p.ExchangeCode(context.Background(), "code-1")
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, "invalid_id_token", exchangeErr.ErrorCode)
}

func TestRegistry(t *testing.T) {
	server := newFakeServer(t)
	github := NewGitHub(server.config())
	line := NewLine(server.config())

	r := NewRegistry(github, line, NewGitHub(server.config()))
	require.Equal(t, []string{GitHub, Line}, r.Names())

	p, ok := r.Get(GitHub)
	require.True(t, ok)
	require.Same(t, github, p)

	_, ok = r.Get(X)
	require.False(t, ok)

	names := r.Names()
	names[0] = "mutated"
	require.Equal(t, []string{GitHub, Line}, r.Names())
}

func TestRegistryFromConfig(t *testing.T) {
	server := newFakeServer(t)
	r, err := NewRegistryFromConfig(context.Background(), config.AuthConfigs{
		GitHub: server.config(),
		X:      server.config(),
		Line:   config.OAuth2Config{ClientID: "only-id"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{GitHub, X}, r.Names())
}

func TestErrorMessages(t *testing.T) {
	err := &TokenExchangeError{Provider: GitHub, StatusCode: 500, Status: "500 Internal Server Error"}
	require.Equal(t, "github token request failed: 500 Internal Server Error", err.Error())

	cause := errors.New("timeout")
	fetchErr := &ProfileFetchError{Provider: X, Err: cause}
	require.ErrorIs(t, fetchErr, cause)
}
