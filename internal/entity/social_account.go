package entity

import (
	"database/sql"
	"time"
)

// SocialAccount links a local user to one identity of an OAuth2 provider.
type SocialAccount struct {
	ID     string `gorm:"primarykey"`
	UserID string `gorm:"index;not null"`
	User   User   `gorm:"foreignKey:UserID"`

	Provider       string `gorm:"uniqueIndex:idx_social_accounts_provider_user;not null"`
	ProviderUserID string `gorm:"uniqueIndex:idx_social_accounts_provider_user;not null"`

	Email  string
	Name   string
	Avatar string

	AccessToken    string
	RefreshToken   string
	TokenExpiresAt sql.NullTime

	LinkedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time
}

func (SocialAccount) TableName() string {
	return "social_accounts"
}
