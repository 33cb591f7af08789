package model

import "github.com/kizuna-social/backend/internal/entity"

func ConvertUser(user *entity.User, accounts []entity.SocialAccount) User {
	if user == nil {
		return User{}
	}

	var linked []LinkedAccount
	for i := range accounts {
		linked = append(linked, ConvertLinkedAccount(&accounts[i]))
	}

	return User{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email.String,
		Handle:         user.Handle,
		Role:           string(user.Role),
		PhotoURL:       user.PhotoURL,
		IsVerified:     user.IsVerified,
		HasPassword:    user.PasswordHash != "",
		LinkedAccounts: linked,
		CreatedAt:      user.CreatedAt,
	}
}

func ConvertLinkedAccount(account *entity.SocialAccount) LinkedAccount {
	if account == nil {
		return LinkedAccount{}
	}

	return LinkedAccount{
		Provider: account.Provider,
		Email:    account.Email,
		Name:     account.Name,
		LinkedAt: account.LinkedAt,
	}
}
