package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/internal/repository"
	"github.com/kizuna-social/backend/pkg/crypto"
	"gorm.io/gorm"
)

type dbStore struct {
	repo repository.OAuthStateRepository
	now  func() time.Time
}

func NewDBStore(repo repository.OAuthStateRepository) *dbStore {
	return NewDBStoreWithClock(repo, time.Now)
}

func NewDBStoreWithClock(repo repository.OAuthStateRepository, now func() time.Time) *dbStore {
	return &dbStore{repo: repo, now: now}
}

func (s *dbStore) Issue(ctx context.Context, req Request, ttl time.Duration) (string, error) {
	state, err := crypto.GenerateRandomHex(stateBytes)
	if err != nil {
		return "", err
	}

	now := s.now()
	if ttl < 0 {
		ttl = 0
	}

	err = s.repo.Create(ctx, &entity.OAuthState{
		State:        state,
		Provider:     req.Provider,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	})
	if err != nil {
		return "", err
	}

	return state, nil
}

func (s *dbStore) Consume(ctx context.Context, state string) (*entity.OAuthState, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	record, err := s.repo.Get(ctx, state)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	// Only the caller whose delete removed the row owns the state.
	deleted, err := s.repo.Delete(ctx, state)
	if err != nil {
		return nil, err
	}

	if deleted != 1 {
		return nil, ErrInvalidState
	}

	if isExpired(record, s.now()) {
		return nil, ErrExpiredState
	}

	return record, nil
}

func (s *dbStore) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
