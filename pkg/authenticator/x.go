package authenticator

import (
	"context"
	"errors"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/pkg/api"
	"golang.org/x/oauth2"
)

const X = "x"

var xEndpoints = endpoints{
	authURL:     "https://twitter.com/i/oauth2/authorize",
	tokenURL:    "https://api.twitter.com/2/oauth2/token",
	userInfoURL: "https://api.twitter.com/2/users/me",
}

type xProvider struct {
	*oauth2Provider
}

// NewX creates the X provider. X requires PKCE and authenticates the client with the basic
// authorization header.
func NewX(cfg config.OAuth2Config) *xProvider {
	p := newOAuth2Provider(X, cfg, xEndpoints,
		[]string{"tweet.read", "users.read"}, oauth2.AuthStyleInHeader)
	p.pkce = true

	return &xProvider{oauth2Provider: p}
}

type xUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (p *xProvider) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	body, err := p.fetchUserInfo(ctx, accessToken, api.Parameter{
		"user.fields": "id,name,username,profile_image_url,created_at",
	})
	if err != nil {
		return Profile{}, err
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: errors.New("missing data field")}
	}

	var user xUser
	if err := api.JSON(data).Decode(&user); err != nil {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: err}
	}

	if user.ID == "" || user.Username == "" {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: errors.New("missing user id")}
	}

	// X never exposes email addresses through this api.
	return Profile{
		ID:       user.ID,
		Email:    user.Username + "@twitter.com",
		Name:     user.Name,
		Avatar:   user.ProfileImageURL,
		Provider: p.name,
	}, nil
}
