package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSocialAccountRepository(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	repo := NewSocialAccountRepository()

	account, err := repo.GetByProviderUserID(ctx, "github", "gh-1")
	require.NoError(t, err)
	require.Equal(t, testutil.User1.ID, account.UserID)

	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	err = repo.UpdateTokensByID(ctx, account.ID, &entity.SocialAccount{
		AccessToken:    "new-access",
		TokenExpiresAt: sql.NullTime{Time: expiresAt, Valid: true},
	})
	require.NoError(t, err)

	account, err = repo.GetByUserIDAndProvider(ctx, testutil.User1.ID, "github")
	require.NoError(t, err)
	require.Equal(t, "new-access", account.AccessToken)
	require.Equal(t, "old-refresh", account.RefreshToken)
	require.True(t, account.TokenExpiresAt.Valid)
	require.True(t, expiresAt.Equal(account.TokenExpiresAt.Time))

	require.NoError(t, repo.Create(ctx, &entity.SocialAccount{
		ID:             "social2",
		UserID:         testutil.User1.ID,
		Provider:       "line",
		ProviderUserID: "line-1",
	}))

	accounts, err := repo.GetAllByUserID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	err = repo.Create(ctx, &entity.SocialAccount{
		ID:             "social3",
		UserID:         testutil.User2.ID,
		Provider:       "github",
		ProviderUserID: "gh-1",
	})
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey), err)

	require.NoError(t, repo.DeleteByUserIDAndProvider(ctx, testutil.User1.ID, "github"))
	require.ErrorIs(t, repo.DeleteByUserIDAndProvider(ctx, testutil.User1.ID, "github"), gorm.ErrRecordNotFound)

	// The identity can be linked again after unlinking.
	require.NoError(t, repo.Create(ctx, &entity.SocialAccount{
		ID:             "social4",
		UserID:         testutil.User2.ID,
		Provider:       "github",
		ProviderUserID: "gh-1",
	}))

	err = repo.UpdateTokensByID(ctx, "invalid", &entity.SocialAccount{AccessToken: "x"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
