package authenticator

import (
	"context"
	"errors"

	"github.com/kizuna-social/backend/config"
	"golang.org/x/oauth2"
)

const Line = "line"

var lineEndpoints = endpoints{
	authURL:     "https://access.line.me/oauth2/v2.1/authorize",
	tokenURL:    "https://api.line.me/oauth2/v2.1/token",
	userInfoURL: "https://api.line.me/v2/profile",
}

type lineProvider struct {
	*oauth2Provider
}

func NewLine(cfg config.OAuth2Config) *lineProvider {
	p := newOAuth2Provider(Line, cfg, lineEndpoints,
		[]string{"profile", "email"}, oauth2.AuthStyleInParams)

	return &lineProvider{oauth2Provider: p}
}

type lineUser struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
	Email       string `json:"email"`
}

func (p *lineProvider) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	body, err := p.fetchUserInfo(ctx, accessToken, nil)
	if err != nil {
		return Profile{}, err
	}

	var user lineUser
	if err := body.Decode(&user); err != nil {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: err}
	}

	if user.UserID == "" {
		return Profile{}, &ProfileFetchError{Provider: p.name, Err: errors.New("missing user id")}
	}

	profile := Profile{
		ID:       user.UserID,
		Email:    user.Email,
		Name:     user.DisplayName,
		Avatar:   user.PictureURL,
		Provider: p.name,
	}

	if profile.Email == "" {
		profile.Email = user.UserID + "@line.me"
	}

	return profile, nil
}
