package entity

import (
	"database/sql"
)

type Role string

const (
	UserRole  Role = "user"
	AdminRole Role = "admin"
)

type User struct {
	Base
	Name   string
	Email  sql.NullString `gorm:"unique"`
	Handle string         `gorm:"unique;not null"`

	// PasswordHash and PasswordSalt are empty for accounts created by an OAuth2 provider.
	PasswordHash string
	PasswordSalt string

	Role       Role `gorm:"default:user"`
	PhotoURL   string
	IsVerified bool
}
