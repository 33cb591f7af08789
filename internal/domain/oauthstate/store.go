package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/kizuna-social/backend/internal/entity"
)

var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrExpiredState = errors.New("expired oauth state")
)

// stateBytes is the entropy of a state, its hex form has 64 characters.
const stateBytes = 32

type Request struct {
	Provider     string
	RedirectURI  string
	CodeVerifier string
}

// Store issues single-use anti-CSRF states for the OAuth2 authorization code flow.
type Store interface {
	Issue(ctx context.Context, req Request, ttl time.Duration) (string, error)

	// Consume deletes the state and returns it. It returns ErrInvalidState if the state does
	// not exist or was consumed by another caller, and ErrExpiredState if the state exists but
	// has expired. A state is expired once its expiration time is reached.
	Consume(ctx context.Context, state string) (*entity.OAuthState, error)

	// Sweep deletes expired states and returns how many were deleted.
	Sweep(ctx context.Context) (int64, error)
}

func isExpired(state *entity.OAuthState, now time.Time) bool {
	return !now.Before(state.ExpiresAt)
}
