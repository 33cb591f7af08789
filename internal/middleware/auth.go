package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kizuna-social/backend/internal/common"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/router"
	"github.com/kizuna-social/backend/pkg/token"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

// Authenticate verifies the access token of the request, taken from the Authorization header or
// the access token cookie. Every token failure is reported as unauthenticated to the client.
func Authenticate() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		accessToken := accessTokenFromRequest(ctx)
		if accessToken == "" {
			return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		claims, err := xcontext.TokenEngine(ctx).Verify(accessToken)
		if err != nil {
			kind := tokenFailureKind(err)
			common.PromCounters[common.TokenVerifyFailureTotal].WithLabelValues(kind).Inc()
			xcontext.Logger(ctx).Debugf("Reject access token (%s): %v", kind, err)
			return nil, errorx.New(errorx.Unauthenticated, "Invalid access token")
		}

		ctx = xcontext.WithRequestUserID(ctx, claims.UserID)
		ctx = xcontext.WithRequestClaims(ctx, claims)
		return ctx, nil
	}
}

func accessTokenFromRequest(ctx context.Context) string {
	req := xcontext.HTTPRequest(ctx)
	if req == nil {
		return ""
	}

	if scheme, value, ok := strings.Cut(req.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(value)
	}

	cookie, err := req.Cookie(xcontext.Configs(ctx).Auth.AccessToken.Name)
	if err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			xcontext.Logger(ctx).Debugf("Cannot read access token cookie: %v", err)
		}

		return ""
	}

	return cookie.Value
}

func tokenFailureKind(err error) string {
	switch {
	case errors.Is(err, token.ErrFormat):
		return "format"
	case errors.Is(err, token.ErrSignature):
		return "signature"
	case errors.Is(err, token.ErrExpired):
		return "expired"
	default:
		return "unknown"
	}
}
