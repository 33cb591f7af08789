package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/kizuna-social/backend/internal/domain/oauthstate"
	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/internal/repository"
	"github.com/kizuna-social/backend/pkg/authenticator"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var (
	errRecordNotFound = gorm.ErrRecordNotFound
	errLinkFailure    = errors.New("cannot insert link")
)

func newTestOAuth2Domain(providers ...authenticator.Provider) *oauth2Domain {
	return &oauth2Domain{
		userRepo:          repository.NewUserRepository(),
		socialAccountRepo: repository.NewSocialAccountRepository(),
		stateStore:        oauthstate.NewDBStore(repository.NewOAuthStateRepository()),
		providers:         authenticator.NewRegistry(providers...),
	}
}

func issueState(t *testing.T, ctx context.Context, d *oauth2Domain, req oauthstate.Request) string {
	state, err := d.stateStore.Issue(ctx, req, xcontext.Configs(ctx).OAuthState.TTL)
	require.NoError(t, err)
	return state
}

// renderOptions shows the parameters set by auth code options as a query string.
func renderOptions(opts ...oauth2.AuthCodeOption) string {
	cfg := oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: "https://example.com/authorize"}}
	return cfg.AuthCodeURL("state", opts...)
}

// countingStore records the calls reaching the underlying store.
type countingStore struct {
	oauthstate.Store
	consumed int
}

func (s *countingStore) Consume(ctx context.Context, state string) (*entity.OAuthState, error) {
	s.consumed++
	return s.Store.Consume(ctx, state)
}

// hiddenLinkRepository pretends the first lookups by provider identity find nothing, like a
// callback racing with another one which has not committed yet.
type hiddenLinkRepository struct {
	repository.SocialAccountRepository
	hiddenLookups int
}

func (r *hiddenLinkRepository) GetByProviderUserID(
	ctx context.Context, provider, providerUserID string,
) (*entity.SocialAccount, error) {
	if r.hiddenLookups > 0 {
		r.hiddenLookups--
		return nil, errRecordNotFound
	}

	return r.SocialAccountRepository.GetByProviderUserID(ctx, provider, providerUserID)
}

// failingLinkRepository cannot create links.
type failingLinkRepository struct {
	repository.SocialAccountRepository
}

func (r *failingLinkRepository) Create(context.Context, *entity.SocialAccount) error {
	return errLinkFailure
}

// staleHandleRepository never sees the taken handles, like a callback reading before another
// one committed its user.
type staleHandleRepository struct {
	repository.UserRepository
}

func (r *staleHandleRepository) ExistsHandle(context.Context, string) (bool, error) {
	return false, nil
}
