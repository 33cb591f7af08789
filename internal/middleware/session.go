package middleware

import (
	"context"
	"errors"

	"github.com/kizuna-social/backend/pkg/router"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

type SessionResponse interface {
	SessionInfo() map[string]any
}

// HandleSaveSession stores the session values of the response. A nil value removes the key.
// It must run before any middleware writing the response body.
func HandleSaveSession() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		sessionResp, ok := xcontext.Response(ctx).(SessionResponse)
		if !ok {
			return nil, nil
		}

		sessionInfo := sessionResp.SessionInfo()
		if sessionInfo == nil {
			return nil, errors.New("no session info")
		}

		store := xcontext.SessionStore(ctx)
		req := xcontext.HTTPRequest(ctx)

		// An undecodable cookie still yields a new session which replaces it.
		session, err := store.Get(req)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Cannot decode session: %v", err)
		}

		for k, v := range sessionInfo {
			if v == nil {
				delete(session.Values, k)
			} else {
				session.Values[k] = v
			}
		}

		if err := store.Save(req, xcontext.HTTPWriter(ctx), session); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot save session: %v", err)
			return nil, err
		}

		return nil, nil
	}
}
