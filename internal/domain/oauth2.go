package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kizuna-social/backend/internal/domain/oauthstate"
	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/internal/model"
	"github.com/kizuna-social/backend/internal/repository"
	"github.com/kizuna-social/backend/pkg/authenticator"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type OAuth2Domain interface {
	Authorize(context.Context, *model.OAuth2AuthorizeRequest) (*model.OAuth2AuthorizeResponse, error)
	Callback(context.Context, *model.OAuth2CallbackRequest) (*model.OAuth2CallbackResponse, error)
	Exchange(context.Context, *model.OAuth2ExchangeRequest) (*model.OAuth2ExchangeResponse, error)
	GetProviders(context.Context, *model.GetOAuth2ProvidersRequest) (*model.GetOAuth2ProvidersResponse, error)
	GetLinkedAccounts(context.Context, *model.GetLinkedAccountsRequest) (*model.GetLinkedAccountsResponse, error)
	Unlink(context.Context, *model.UnlinkAccountRequest) (*model.UnlinkAccountResponse, error)
	RefreshProviderToken(context.Context, *model.RefreshProviderTokenRequest) (*model.RefreshProviderTokenResponse, error)

	HandleCallback(context.Context, CallbackParams) CallbackResult
}

type oauth2Domain struct {
	userRepo          repository.UserRepository
	socialAccountRepo repository.SocialAccountRepository
	stateStore        oauthstate.Store
	providers         *authenticator.Registry
}

func NewOAuth2Domain(
	userRepo repository.UserRepository,
	socialAccountRepo repository.SocialAccountRepository,
	stateStore oauthstate.Store,
	providers *authenticator.Registry,
) OAuth2Domain {
	return &oauth2Domain{
		userRepo:          userRepo,
		socialAccountRepo: socialAccountRepo,
		stateStore:        stateStore,
		providers:         providers,
	}
}

func (d *oauth2Domain) Authorize(
	ctx context.Context, req *model.OAuth2AuthorizeRequest,
) (*model.OAuth2AuthorizeResponse, error) {
	provider, err := d.getProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	if req.RedirectURI != "" && !isAllowedRedirectURI(ctx, req.RedirectURI) {
		return nil, errorx.New(errorx.BadRequest, "Redirect uri is not allowed")
	}

	stateReq := oauthstate.Request{Provider: provider.Name(), RedirectURI: req.RedirectURI}

	var opts []oauth2.AuthCodeOption
	if provider.RequiresPKCE() {
		stateReq.CodeVerifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(stateReq.CodeVerifier))
	}

	if req.RedirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", req.RedirectURI))
	}

	state, err := d.stateStore.Issue(ctx, stateReq, xcontext.Configs(ctx).OAuthState.TTL)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot issue oauth state: %v", err)
		return nil, errorx.Unknown
	}

	return &model.OAuth2AuthorizeResponse{
		RedirectURL: provider.AuthorizationURL(state, nil, opts...),
		State:       state,
	}, nil
}

func (d *oauth2Domain) Callback(
	ctx context.Context, req *model.OAuth2CallbackRequest,
) (*model.OAuth2CallbackResponse, error) {
	if _, err := d.getProvider(req.Provider); err != nil {
		return nil, err
	}

	result := d.HandleCallback(ctx, CallbackParams{
		Provider:         req.Provider,
		Code:             req.Code,
		State:            req.State,
		Error:            req.Error,
		ErrorDescription: req.ErrorDescription,
	})

	redirectURL, err := frontendRedirectURL(xcontext.Configs(ctx).Auth.FrontendURL, result)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot build frontend redirect url: %v", err)
		return nil, errorx.Unknown
	}

	return &model.OAuth2CallbackResponse{RedirectURL: redirectURL}, nil
}

func (d *oauth2Domain) Exchange(
	ctx context.Context, req *model.OAuth2ExchangeRequest,
) (*model.OAuth2ExchangeResponse, error) {
	if req.Provider == "" || req.Code == "" || req.State == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing required parameters: provider, code, state")
	}

	if _, err := d.getProvider(req.Provider); err != nil {
		return nil, err
	}

	result := d.HandleCallback(ctx, CallbackParams{
		Provider:    req.Provider,
		Code:        req.Code,
		State:       req.State,
		RedirectURI: req.RedirectURI,
	})

	if !result.Success {
		if result.Reason == CallbackException {
			return nil, errorx.Unknown
		}

		return nil, errorx.New(errorx.OAuth2Rejected, "%s: %s", result.Reason, result.Error)
	}

	return &model.OAuth2ExchangeResponse{
		UserID:    result.UserID,
		Token:     result.AccessToken,
		Provider:  result.Provider,
		IsNewUser: result.IsNewUser,
	}, nil
}

func (d *oauth2Domain) GetProviders(
	ctx context.Context, req *model.GetOAuth2ProvidersRequest,
) (*model.GetOAuth2ProvidersResponse, error) {
	providers := d.providers.Names()
	if providers == nil {
		providers = []string{}
	}

	return &model.GetOAuth2ProvidersResponse{Providers: providers, Count: len(providers)}, nil
}

func (d *oauth2Domain) GetLinkedAccounts(
	ctx context.Context, req *model.GetLinkedAccountsRequest,
) (*model.GetLinkedAccountsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	accounts, err := d.socialAccountRepo.GetAllByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get linked accounts: %v", err)
		return nil, errorx.Unknown
	}

	linked := []model.LinkedAccount{}
	for i := range accounts {
		linked = append(linked, model.ConvertLinkedAccount(&accounts[i]))
	}

	return &model.GetLinkedAccountsResponse{UserID: userID, LinkedAccounts: linked}, nil
}

func (d *oauth2Domain) Unlink(
	ctx context.Context, req *model.UnlinkAccountRequest,
) (*model.UnlinkAccountResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	accounts, err := d.socialAccountRepo.GetAllByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get linked accounts: %v", err)
		return nil, errorx.Unknown
	}

	if user.PasswordHash == "" && len(accounts) == 1 && accounts[0].Provider == req.Provider {
		return nil, errorx.New(errorx.BadRequest, "Cannot unlink the only sign-in method of this account")
	}

	if err := d.socialAccountRepo.DeleteByUserIDAndProvider(ctx, userID, req.Provider); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No linked %s account", req.Provider)
		}

		xcontext.Logger(ctx).Errorf("Cannot unlink account: %v", err)
		return nil, errorx.Unknown
	}

	return &model.UnlinkAccountResponse{
		Success: true,
		Message: fmt.Sprintf("%s account unlinked successfully", req.Provider),
	}, nil
}

func (d *oauth2Domain) RefreshProviderToken(
	ctx context.Context, req *model.RefreshProviderTokenRequest,
) (*model.RefreshProviderTokenResponse, error) {
	provider, err := d.getProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	account, err := d.socialAccountRepo.GetByUserIDAndProvider(ctx, xcontext.RequestUserID(ctx), provider.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No linked %s account", provider.Name())
		}

		xcontext.Logger(ctx).Errorf("Cannot get linked account: %v", err)
		return nil, errorx.Unknown
	}

	if account.RefreshToken == "" {
		return nil, errorx.New(errorx.BadRequest, "No refresh token stored for %s", provider.Name())
	}

	serviceToken, err := provider.RefreshAccessToken(ctx, account.RefreshToken)
	if err != nil {
		if errors.Is(err, authenticator.ErrNotSupported) {
			return nil, errorx.New(errorx.NotImplemented, "%s does not support token refresh", provider.Name())
		}

		xcontext.Logger(ctx).Warnf("Cannot refresh %s token: %v", provider.Name(), err)
		return nil, errorx.New(errorx.BadResponse, "Cannot refresh %s token", provider.Name())
	}

	err = d.socialAccountRepo.UpdateTokensByID(ctx, account.ID, &entity.SocialAccount{
		AccessToken:    serviceToken.AccessToken,
		RefreshToken:   serviceToken.RefreshToken,
		TokenExpiresAt: tokenExpiry(serviceToken),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update provider tokens: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.RefreshProviderTokenResponse{
		Provider:    provider.Name(),
		AccessToken: serviceToken.AccessToken,
	}

	if !serviceToken.Expiry.IsZero() {
		resp.ExpiresAt = &serviceToken.Expiry
	}

	return resp, nil
}

func (d *oauth2Domain) getProvider(name string) (authenticator.Provider, error) {
	provider, ok := d.providers.Get(name)
	if !ok {
		return nil, errorx.New(errorx.BadRequest, "OAuth provider '%s' is not available", name)
	}

	return provider, nil
}

func frontendRedirectURL(frontendURL string, result CallbackResult) (string, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if result.Success {
		q.Set("userId", result.UserID)
		q.Set("accessToken", result.AccessToken)
		q.Set("provider", result.Provider)
		q.Set("isNewUser", strconv.FormatBool(result.IsNewUser))
	} else {
		q.Set("error", string(result.Reason))
		q.Set("error_description", result.Error)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
