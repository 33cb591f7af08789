package model

import "time"

type User struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Handle         string          `json:"handle"`
	Role           string          `json:"role"`
	PhotoURL       string          `json:"photoUrl"`
	IsVerified     bool            `json:"isVerified"`
	HasPassword    bool            `json:"hasPassword"`
	LinkedAccounts []LinkedAccount `json:"linkedAccounts,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type LinkedAccount struct {
	Provider string    `json:"provider"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	LinkedAt time.Time `json:"linkedAt"`
}
