package authenticator

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var ErrNotSupported = errors.New("refresh token is not supported by this provider")

type TokenExchangeError struct {
	Provider   string
	StatusCode int
	Status     string
	ErrorCode  string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s token request failed: %s", e.Provider, e.Status)
	}

	if e.ErrorCode != "" {
		return fmt.Sprintf("%s token request failed: %s", e.Provider, e.ErrorCode)
	}

	return fmt.Sprintf("%s token request failed: %v", e.Provider, e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

type ProfileFetchError struct {
	Provider   string
	StatusCode int
	Status     string
	Err        error
}

func (e *ProfileFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s user profile: %s", e.Provider, e.Status)
	}

	return fmt.Sprintf("failed to fetch %s user profile: %v", e.Provider, e.Err)
}

func (e *ProfileFetchError) Unwrap() error {
	return e.Err
}

func newTokenExchangeError(provider string, err error) *TokenExchangeError {
	exchangeErr := &TokenExchangeError{Provider: provider, Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		exchangeErr.ErrorCode = retrieveErr.ErrorCode
		if retrieveErr.Response != nil && (retrieveErr.Response.StatusCode < 200 || retrieveErr.Response.StatusCode > 299) {
			exchangeErr.StatusCode = retrieveErr.Response.StatusCode
			exchangeErr.Status = retrieveErr.Response.Status
		}
	}

	return exchangeErr
}
