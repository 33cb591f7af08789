package entity

import "time"

type OAuthState struct {
	State        string `gorm:"primarykey"`
	Provider     string `gorm:"not null"`
	RedirectURI  string
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"index;not null"`
}

func (OAuthState) TableName() string {
	return "oauth_states"
}
