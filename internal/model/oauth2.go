package model

import (
	"net/http"
	"time"
)

// SessionOAuthState is the session key binding an issued state to the browser which started
// the authorization.
const SessionOAuthState = "oauth_state"

type OAuth2AuthorizeRequest struct {
	Provider    string `json:"provider"`
	RedirectURI string `json:"redirect_uri"`
}

type OAuth2AuthorizeResponse struct {
	RedirectURL string `json:"-"`
	State       string `json:"-"`
}

func (r OAuth2AuthorizeResponse) RedirectInfo() (int, string) {
	return http.StatusFound, r.RedirectURL
}

func (r OAuth2AuthorizeResponse) SessionInfo() map[string]any {
	return map[string]any{SessionOAuthState: r.State}
}

type OAuth2CallbackRequest struct {
	Provider         string `json:"provider"`
	Code             string `json:"code"`
	State            string `json:"state"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type OAuth2CallbackResponse struct {
	RedirectURL string `json:"-"`
}

func (r OAuth2CallbackResponse) RedirectInfo() (int, string) {
	return http.StatusFound, r.RedirectURL
}

// SessionInfo removes the state binding, the state cannot be used anymore.
func (r OAuth2CallbackResponse) SessionInfo() map[string]any {
	return map[string]any{SessionOAuthState: nil}
}

type OAuth2ExchangeRequest struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirectUri"`
}

type OAuth2ExchangeResponse struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	Provider  string `json:"provider"`
	IsNewUser bool   `json:"isNewUser"`
}

type GetOAuth2ProvidersRequest struct{}

type GetOAuth2ProvidersResponse struct {
	Providers []string `json:"providers"`
	Count     int      `json:"count"`
}

type GetLinkedAccountsRequest struct{}

type GetLinkedAccountsResponse struct {
	UserID         string          `json:"userId"`
	LinkedAccounts []LinkedAccount `json:"linkedAccounts"`
}

type UnlinkAccountRequest struct {
	Provider string `json:"provider"`
}

type UnlinkAccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RefreshProviderTokenRequest struct {
	Provider string `json:"provider"`
}

type RefreshProviderTokenResponse struct {
	Provider    string     `json:"provider"`
	AccessToken string     `json:"accessToken"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}
