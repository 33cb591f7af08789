package authenticator

import (
	"context"
	"errors"

	"github.com/kizuna-social/backend/config"
	"golang.org/x/oauth2"
)

const GitHub = "github"

var githubEndpoints = endpoints{
	authURL:     "https://github.com/login/oauth/authorize",
	tokenURL:    "https://github.com/login/oauth/access_token",
	userInfoURL: "https://api.github.com/user",
}

type githubProvider struct {
	*oauth2Provider
}

func NewGitHub(cfg config.OAuth2Config) *githubProvider {
	p := newOAuth2Provider(GitHub, cfg, githubEndpoints,
		[]string{"read:user", "user:email"}, oauth2.AuthStyleInParams)
	p.authOpts = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("allow_signup", "true")}

	return &githubProvider{oauth2Provider: p}
}

func (p *githubProvider) RefreshAccessToken(context.Context, string) (*oauth2.Token, error) {
	return nil, ErrNotSupported
}

type githubUser struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (p *githubProvider) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	body, err := p.fetchUserInfo(ctx, accessToken, nil)
	if err != nil {
		return Profile{}, err
	}

	var user githubUser
	if err := body.Decode(&user); err != nil {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: err}
	}

	if user.ID == "" || user.Login == "" {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: errors.New("missing user id")}
	}

	profile := Profile{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Avatar:   user.AvatarURL,
		Provider: p.name,
	}

	// Users may hide their email address.
	if profile.Email == "" {
		profile.Email = user.Login + "@github.com"
	}

	if profile.Name == "" {
		profile.Name = user.Login
	}

	return profile, nil
}
