package domain

import (
	"context"
	"net/url"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/token"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
)

func generateAccessToken(ctx context.Context, user *entity.User) (string, error) {
	return xcontext.TokenEngine(ctx).Generate(token.Claims{
		UserID: user.ID,
		Email:  user.Email.String,
		Role:   string(user.Role),
	}, xcontext.Configs(ctx).Auth.AccessToken.Expiration)
}

// isAllowedRedirectURI accepts absolute http(s) uris. When an allowlist is configured, the uri
// must be one of its entries.
func isAllowedRedirectURI(ctx context.Context, uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	allowlist := xcontext.Configs(ctx).Auth.RedirectAllowlist
	return len(allowlist) == 0 || slices.Contains(allowlist, uri)
}
