package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/crypto"
	"github.com/kizuna-social/backend/pkg/xredis"
)

const redisKeyPrefix = "oauth_state:"

// minRedisTTL is used for states issued already expired, redis rejects a zero expiration.
const minRedisTTL = time.Second

type redisStore struct {
	client xredis.Client
	now    func() time.Time
}

func NewRedisStore(client xredis.Client) *redisStore {
	return NewRedisStoreWithClock(client, time.Now)
}

func NewRedisStoreWithClock(client xredis.Client, now func() time.Time) *redisStore {
	return &redisStore{client: client, now: now}
}

func (s *redisStore) Issue(ctx context.Context, req Request, ttl time.Duration) (string, error) {
	state, err := crypto.GenerateRandomHex(stateBytes)
	if err != nil {
		return "", err
	}

	now := s.now()
	if ttl < 0 {
		ttl = 0
	}

	record := entity.OAuthState{
		State:        state,
		Provider:     req.Provider,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	keyTTL := ttl
	if keyTTL < minRedisTTL {
		keyTTL = minRedisTTL
	}

	if err := s.client.SetObj(ctx, redisKeyPrefix+state, record, keyTTL); err != nil {
		return "", err
	}

	return state, nil
}

// Consume relies on GETDEL, so concurrent callers cannot both read the state.
func (s *redisStore) Consume(ctx context.Context, state string) (*entity.OAuthState, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	var record entity.OAuthState
	if err := s.client.GetDelObj(ctx, redisKeyPrefix+state, &record); err != nil {
		if errors.Is(err, xredis.ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if isExpired(&record, s.now()) {
		return nil, ErrExpiredState
	}

	return &record, nil
}

// Sweep is a no-op, redis evicts the keys by itself.
func (s *redisStore) Sweep(context.Context) (int64, error) {
	return 0, nil
}
