package domain

import (
	"testing"

	"github.com/kizuna-social/backend/internal/domain/oauthstate"
	"github.com/kizuna-social/backend/internal/model"
	"github.com/kizuna-social/backend/internal/repository"
	"github.com/kizuna-social/backend/pkg/authenticator"
	"github.com/kizuna-social/backend/pkg/crypto"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/testutil"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newTestAuthDomain() *authDomain {
	return &authDomain{
		userRepo:          repository.NewUserRepository(),
		socialAccountRepo: repository.NewSocialAccountRepository(),
	}
}

func Test_authDomain_SignUp(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestAuthDomain()

	resp, err := d.SignUp(ctx, &model.SignUpRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Handle:   "alice",
		Password: "Str0ng-Passw0rd",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", resp.User.Handle)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Equal(t, "user", resp.User.Role)
	require.True(t, resp.User.HasPassword)

	claims, err := xcontext.TokenEngine(ctx).Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)

	user, err := repository.NewUserRepository().GetByID(ctx, resp.User.ID)
	require.NoError(t, err)
	require.NotEqual(t, "Str0ng-Passw0rd", user.PasswordHash)
	require.True(t, crypto.VerifyPassword("Str0ng-Passw0rd", user.PasswordHash, user.PasswordSalt))
}

func Test_authDomain_SignUp_Invalid(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestAuthDomain()

	testCases := []struct {
		name    string
		req     *model.SignUpRequest
		code    errorx.Code
		message string
	}{
		{
			name:    "missing fields",
			req:     &model.SignUpRequest{Email: "bob@example.com"},
			code:    errorx.BadRequest,
			message: "Missing required fields: handle, name, password",
		},
		{
			name:    "invalid email",
			req:     &model.SignUpRequest{Name: "Bob", Email: "bob@example", Handle: "bob", Password: "Str0ng-Passw0rd"},
			code:    errorx.BadRequest,
			message: "Invalid email format",
		},
		{
			name: "invalid handle",
			req:  &model.SignUpRequest{Name: "Bob", Email: "bob@example.com", Handle: "Bob!", Password: "Str0ng-Passw0rd"},
			code: errorx.BadRequest,
		},
		{
			name: "weak password",
			req:  &model.SignUpRequest{Name: "Bob", Email: "bob@example.com", Handle: "bob", Password: "short"},
			code: errorx.BadRequest,
		},
		{
			name:    "email taken",
			req:     &model.SignUpRequest{Name: "Bob", Email: testutil.User1.Email.String, Handle: "bob", Password: "Str0ng-Passw0rd"},
			code:    errorx.AlreadyExists,
			message: "Email already registered",
		},
		{
			name:    "handle taken",
			req:     &model.SignUpRequest{Name: "Bob", Email: "bob@example.com", Handle: testutil.User1.Handle, Password: "Str0ng-Passw0rd"},
			code:    errorx.AlreadyExists,
			message: "Handle already taken, user1_2 is available",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.SignUp(ctx, tc.req)
			requireErrorCode(t, err, tc.code)
			if tc.message != "" {
				require.Equal(t, tc.message, err.Error())
			}
		})
	}
}

func Test_authDomain_SignIn(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestAuthDomain()

	resp, err := d.SignIn(ctx, &model.SignInRequest{
		Email:    testutil.User1.Email.String,
		Password: testutil.FixturePassword,
	})
	require.NoError(t, err)
	require.Equal(t, testutil.User1.ID, resp.User.ID)

	claims, err := xcontext.TokenEngine(ctx).Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, testutil.User1.ID, claims.UserID)

	_, err = d.SignIn(ctx, &model.SignInRequest{Email: testutil.User1.Email.String, Password: "wrong"})
	requireErrorCode(t, err, errorx.Unauthenticated)

	_, err = d.SignIn(ctx, &model.SignInRequest{Email: "nobody@example.com", Password: "wrong"})
	requireErrorCode(t, err, errorx.Unauthenticated)

	_, err = d.SignIn(ctx, &model.SignInRequest{Email: testutil.User1.Email.String})
	requireErrorCode(t, err, errorx.BadRequest)
}

func Test_authDomain_SignIn_SocialOnlyAccount(t *testing.T) {
	ctx := testutil.NewMockContext()
	oauth2Domain := newTestOAuth2Domain(newGitHubProvider(authenticator.Profile{ID: "gh-42", Email: "octo@github.com"}))

	state := issueState(t, ctx, oauth2Domain, oauthstate.Request{Provider: "github"})
	result := oauth2Domain.HandleCallback(ctx, CallbackParams{Provider: "github", Code: "code", State: state})
	require.True(t, result.Success, result.Error)

	_, err := newTestAuthDomain().SignIn(ctx, &model.SignInRequest{Email: "octo@github.com", Password: "anything"})
	requireErrorCode(t, err, errorx.Unauthenticated)
}

func Test_authDomain_SignOut(t *testing.T) {
	resp, err := newTestAuthDomain().SignOut(testutil.NewMockContext(), &model.SignOutRequest{})
	require.NoError(t, err)
	require.True(t, resp.Success)
}

func Test_authDomain_GetMe(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestAuthDomain()

	resp, err := d.GetMe(testutil.MockContextWithUserID(ctx, testutil.User1.ID), &model.GetMeRequest{})
	require.NoError(t, err)
	require.Equal(t, testutil.User1.ID, resp.ID)
	require.Equal(t, testutil.User1.Handle, resp.Handle)
	require.Len(t, resp.LinkedAccounts, 1)
	require.Equal(t, "github", resp.LinkedAccounts[0].Provider)

	_, err = d.GetMe(testutil.MockContextWithUserID(ctx, "ghost"), &model.GetMeRequest{})
	requireErrorCode(t, err, errorx.NotFound)
}
