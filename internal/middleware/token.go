package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/kizuna-social/backend/pkg/router"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

type AccessTokenResponse interface {
	AccessTokenInfo() string
}

// HandleSetAccessToken mirrors the access token of the response in a cookie. An empty token
// clears the cookie.
func HandleSetAccessToken() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		tokenResp, ok := xcontext.Response(ctx).(AccessTokenResponse)
		if !ok {
			return nil, nil
		}

		cfg := xcontext.Configs(ctx)
		cookie := &http.Cookie{
			Name:     cfg.Auth.AccessToken.Name,
			Value:    tokenResp.AccessTokenInfo(),
			Path:     "/",
			Secure:   cfg.Env != "local",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}

		if cookie.Value == "" {
			cookie.MaxAge = -1
		} else {
			cookie.Expires = time.Now().Add(cfg.Auth.AccessToken.Expiration)
		}

		http.SetCookie(xcontext.HTTPWriter(ctx), cookie)
		return nil, nil
	}
}
