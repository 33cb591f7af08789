package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/crypto"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

const FixturePassword = "Fixture-Password-1"

var (
	// User1 has a password and a github link.
	User1 = &entity.User{
		Base:   entity.Base{ID: "user1"},
		Name:   "User One",
		Email:  sql.NullString{String: "user1@example.com", Valid: true},
		Handle: "user1",
		Role:   entity.UserRole,
	}

	// User2 has a password and no link.
	User2 = &entity.User{
		Base:   entity.Base{ID: "user2"},
		Name:   "User Two",
		Email:  sql.NullString{String: "user2@example.com", Valid: true},
		Handle: "user2",
		Role:   entity.UserRole,
	}

	Users = []*entity.User{User1, User2}

	SocialAccount1 = &entity.SocialAccount{
		ID:             "social1",
		UserID:         User1.ID,
		Provider:       "github",
		ProviderUserID: "gh-1",
		Email:          "user1@example.com",
		Name:           "user1",
		AccessToken:    "old-access",
		RefreshToken:   "old-refresh",
	}

	SocialAccounts = []*entity.SocialAccount{SocialAccount1}
)

// CreateFixtureDb inserts the fixtures into the database of ctx.
func CreateFixtureDb(ctx context.Context) {
	InsertUsers(ctx)
	InsertSocialAccounts(ctx)
}

func InsertUsers(ctx context.Context) {
	for _, u := range Users {
		hash, salt, err := crypto.HashPassword(FixturePassword, "")
		if err != nil {
			panic(err)
		}

		user := *u
		user.PasswordHash = hash
		user.PasswordSalt = salt
		if err := xcontext.DB(ctx).Create(&user).Error; err != nil {
			panic(err)
		}
	}
}

func InsertSocialAccounts(ctx context.Context) {
	for _, s := range SocialAccounts {
		account := *s
		account.LinkedAt = time.Now()
		if err := xcontext.DB(ctx).Omit("User").Create(&account).Error; err != nil {
			panic(err)
		}
	}
}
