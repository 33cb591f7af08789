package domain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode"

	"github.com/google/uuid"
	"github.com/kizuna-social/backend/internal/common"
	"github.com/kizuna-social/backend/internal/domain/oauthstate"
	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/internal/model"
	"github.com/kizuna-social/backend/pkg/authenticator"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type RejectReason string

const (
	ProviderError         RejectReason = "provider_error"
	MissingParameter      RejectReason = "missing_parameter"
	InvalidOrExpiredState RejectReason = "invalid_or_expired_state"
	TokenExchangeFailed   RejectReason = "token_exchange_failed"
	ProfileFetchFailed    RejectReason = "profile_fetch_failed"
	CallbackException     RejectReason = "callback_exception"
)

// maxProviderTextLength bounds the provider supplied text echoed back to clients.
const maxProviderTextLength = 200

type CallbackParams struct {
	Provider         string
	Code             string
	State            string
	Error            string
	ErrorDescription string

	// RedirectURI is sent on the token exchange when the state was issued without one.
	RedirectURI string
}

type CallbackResult struct {
	Success             bool
	UserID              string
	AccessToken         string
	SocialAccountLinked bool
	IsNewUser           bool
	Provider            string

	Reason RejectReason
	Error  string
}

func (r CallbackResult) outcome() string {
	switch {
	case !r.Success:
		return string(r.Reason)
	case r.IsNewUser:
		return "provisioned"
	default:
		return "linked"
	}
}

func rejectCallback(provider string, reason RejectReason, message string) CallbackResult {
	return CallbackResult{Provider: provider, Reason: reason, Error: message}
}

// HandleCallback completes an authorization code flow. It never fails with an error, every
// failure is reported in the result.
func (d *oauth2Domain) HandleCallback(ctx context.Context, params CallbackParams) (result CallbackResult) {
	defer func() {
		if r := recover(); r != nil {
			xcontext.Logger(ctx).Errorf("Panic while handling %s callback: %v", params.Provider, r)
			result = rejectCallback(params.Provider, CallbackException, "OAuth callback failed")
		}

		common.PromCounters[common.OAuthCallbackTotal].WithLabelValues(params.Provider, result.outcome()).Inc()
	}()

	if params.Error != "" {
		message := "OAuth error: " + providerText(params.Error)
		if params.ErrorDescription != "" {
			message += " - " + providerText(params.ErrorDescription)
		}

		return rejectCallback(params.Provider, ProviderError, message)
	}

	if params.Code == "" || params.State == "" {
		return rejectCallback(params.Provider, MissingParameter, "Missing code or state parameter")
	}

	provider, ok := d.providers.Get(params.Provider)
	if !ok {
		return rejectCallback(params.Provider, CallbackException,
			fmt.Sprintf("OAuth provider '%s' is not available", params.Provider))
	}

	state, err := d.stateStore.Consume(ctx, params.State)
	if err != nil {
		switch {
		case errors.Is(err, oauthstate.ErrInvalidState):
			return rejectCallback(params.Provider, InvalidOrExpiredState, "Invalid state parameter")
		case errors.Is(err, oauthstate.ErrExpiredState):
			return rejectCallback(params.Provider, InvalidOrExpiredState, "State parameter expired")
		default:
			xcontext.Logger(ctx).Errorf("Cannot consume oauth state: %v", err)
			return rejectCallback(params.Provider, CallbackException, "OAuth callback failed")
		}
	}

	if state.Provider != provider.Name() {
		return rejectCallback(params.Provider, InvalidOrExpiredState, "State was issued for another provider")
	}

	if bound := sessionState(ctx); bound != "" && bound != params.State {
		return rejectCallback(params.Provider, InvalidOrExpiredState, "State does not match the browser session")
	}

	var opts []oauth2.AuthCodeOption
	if state.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(state.CodeVerifier))
	}

	redirectURI := state.RedirectURI
	if redirectURI == "" && params.RedirectURI != "" {
		if isAllowedRedirectURI(ctx, params.RedirectURI) {
			redirectURI = params.RedirectURI
		} else {
			xcontext.Logger(ctx).Warnf("Ignore not allowed redirect uri %s", params.RedirectURI)
		}
	}

	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	serviceToken, err := provider.ExchangeCode(ctx, params.Code, opts...)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot exchange %s authorization code: %v", provider.Name(), err)
		return rejectCallback(params.Provider, TokenExchangeFailed, exchangeFailureMessage(err))
	}

	profile, err := provider.FetchProfile(ctx, serviceToken.AccessToken)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot fetch %s profile: %v", provider.Name(), err)
		return rejectCallback(params.Provider, ProfileFetchFailed, profileFailureMessage(provider.Name(), err))
	}

	if profile.ID == "" {
		return rejectCallback(params.Provider, ProfileFetchFailed,
			fmt.Sprintf("The %s profile has no user id", provider.Name()))
	}

	user, isNewUser, err := d.resolveAccount(ctx, provider.Name(), profile, serviceToken)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot resolve account of %s user %s: %v", provider.Name(), profile.ID, err)
		return rejectCallback(params.Provider, CallbackException, "Cannot resolve the local account")
	}

	accessToken, err := generateAccessToken(ctx, user)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot generate access token: %v", err)
		return rejectCallback(params.Provider, CallbackException, "Cannot generate access token")
	}

	return CallbackResult{
		Success:             true,
		UserID:              user.ID,
		AccessToken:         accessToken,
		SocialAccountLinked: !isNewUser,
		IsNewUser:           isNewUser,
		Provider:            provider.Name(),
	}
}

// resolveAccount finds or creates the local user of a provider identity. The returned bool is
// true when the user was created.
func (d *oauth2Domain) resolveAccount(
	ctx context.Context,
	provider string,
	profile authenticator.Profile,
	serviceToken *oauth2.Token,
) (*entity.User, bool, error) {
	user, isNewUser, err := d.linkOrProvision(ctx, provider, profile, serviceToken)
	if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
		return user, isNewUser, err
	}

	// A concurrent callback created the same identity first, its records win.
	xcontext.Logger(ctx).Warnf("Duplicated %s identity %s, retry the lookup", provider, profile.ID)
	user, err = d.linkExistingUser(ctx, provider, profile, serviceToken)
	if err == nil {
		return user, false, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// Nobody owns the identity, so the conflict was on the generated handle.
	xcontext.Logger(ctx).Warnf("Handle of %s identity %s was taken concurrently, use a random one", provider, profile.ID)
	user, err = d.provisionUser(ctx, provider, profile, serviceToken, true)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}

func (d *oauth2Domain) linkOrProvision(
	ctx context.Context,
	provider string,
	profile authenticator.Profile,
	serviceToken *oauth2.Token,
) (*entity.User, bool, error) {
	user, err := d.linkExistingUser(ctx, provider, profile, serviceToken)
	if err == nil {
		return user, false, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user, err = d.provisionUser(ctx, provider, profile, serviceToken, false)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}

// linkExistingUser refreshes the tokens of an existing link, or links the user owning the
// profile email. It returns gorm.ErrRecordNotFound if no local user matches.
func (d *oauth2Domain) linkExistingUser(
	ctx context.Context,
	provider string,
	profile authenticator.Profile,
	serviceToken *oauth2.Token,
) (*entity.User, error) {
	account, err := d.socialAccountRepo.GetByProviderUserID(ctx, provider, profile.ID)
	if err == nil {
		err := d.socialAccountRepo.UpdateTokensByID(ctx, account.ID, newSocialAccount(account.UserID, provider, profile, serviceToken))
		if err != nil {
			return nil, err
		}

		return d.userRepo.GetByID(ctx, account.UserID)
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if profile.Email == "" {
		return nil, gorm.ErrRecordNotFound
	}

	user, err := d.userRepo.GetByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	if err := d.socialAccountRepo.Create(ctx, newSocialAccount(user.ID, provider, profile, serviceToken)); err != nil {
		return nil, err
	}

	return user, nil
}

func (d *oauth2Domain) provisionUser(
	ctx context.Context,
	provider string,
	profile authenticator.Profile,
	serviceToken *oauth2.Token,
	randomHandle bool,
) (*entity.User, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	var handle string
	var err error
	if randomHandle {
		handle, err = common.RandomHandle(profile.Email, profile.ID)
	} else {
		handle, err = common.GenerateHandle(ctx, d.userRepo, profile.Email, profile.ID)
	}
	if err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = handle
	}

	user := &entity.User{
		Base:     entity.Base{ID: uuid.NewString()},
		Name:     name,
		Email:    sql.NullString{String: profile.Email, Valid: profile.Email != ""},
		Handle:   handle,
		Role:     entity.UserRole,
		PhotoURL: profile.Avatar,
	}

	if err := d.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := d.socialAccountRepo.Create(ctx, newSocialAccount(user.ID, provider, profile, serviceToken)); err != nil {
		return nil, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, err
	}

	return user, nil
}

func newSocialAccount(
	userID, provider string,
	profile authenticator.Profile,
	serviceToken *oauth2.Token,
) *entity.SocialAccount {
	return &entity.SocialAccount{
		ID:             uuid.NewString(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		Name:           profile.Name,
		Avatar:         profile.Avatar,
		AccessToken:    serviceToken.AccessToken,
		RefreshToken:   serviceToken.RefreshToken,
		TokenExpiresAt: tokenExpiry(serviceToken),
	}
}

func tokenExpiry(t *oauth2.Token) sql.NullTime {
	return sql.NullTime{Time: t.Expiry, Valid: !t.Expiry.IsZero()}
}

// sessionState returns the state bound to the browser session, if any.
func sessionState(ctx context.Context) string {
	req := xcontext.HTTPRequest(ctx)
	store := xcontext.SessionStore(ctx)
	if req == nil || store == nil {
		return ""
	}

	session, err := store.Get(req)
	if err != nil {
		return ""
	}

	state, _ := session.Values[model.SessionOAuthState].(string)
	return state
}

func exchangeFailureMessage(err error) string {
	var exchangeErr *authenticator.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		if exchangeErr.ErrorCode != "" {
			return "Token exchange failed: " + providerText(exchangeErr.ErrorCode)
		}

		if exchangeErr.Status != "" {
			return "Token exchange failed: " + exchangeErr.Status
		}
	}

	return "Token exchange failed"
}

func profileFailureMessage(provider string, err error) string {
	var profileErr *authenticator.ProfileFetchError
	if errors.As(err, &profileErr) && profileErr.Status != "" {
		return fmt.Sprintf("Cannot fetch the %s profile: %s", provider, profileErr.Status)
	}

	return fmt.Sprintf("Cannot fetch the %s profile", provider)
}

// providerText strips unprintable characters and bounds the length of provider supplied text.
func providerText(s string) string {
	runes := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsPrint(r) {
			runes = append(runes, r)
		}

		if len(runes) == maxProviderTextLength {
			break
		}
	}

	return string(runes)
}
