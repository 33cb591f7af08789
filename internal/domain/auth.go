package domain

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/kizuna-social/backend/internal/common"
	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/internal/model"
	"github.com/kizuna-social/backend/internal/repository"
	"github.com/kizuna-social/backend/pkg/crypto"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"gorm.io/gorm"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthDomain interface {
	SignUp(context.Context, *model.SignUpRequest) (*model.SignUpResponse, error)
	SignIn(context.Context, *model.SignInRequest) (*model.SignInResponse, error)
	SignOut(context.Context, *model.SignOutRequest) (*model.SignOutResponse, error)
	GetMe(context.Context, *model.GetMeRequest) (*model.GetMeResponse, error)
}

type authDomain struct {
	userRepo          repository.UserRepository
	socialAccountRepo repository.SocialAccountRepository
}

func NewAuthDomain(
	userRepo repository.UserRepository,
	socialAccountRepo repository.SocialAccountRepository,
) AuthDomain {
	return &authDomain{
		userRepo:          userRepo,
		socialAccountRepo: socialAccountRepo,
	}
}

func (d *authDomain) SignUp(ctx context.Context, req *model.SignUpRequest) (*model.SignUpResponse, error) {
	if missing := missingFields(map[string]string{
		"email":    req.Email,
		"handle":   req.Handle,
		"name":     req.Name,
		"password": req.Password,
	}, "email", "handle", "name", "password"); len(missing) > 0 {
		return nil, errorx.New(errorx.BadRequest, "Missing required fields: %s", strings.Join(missing, ", "))
	}

	if !emailRegex.MatchString(req.Email) {
		return nil, errorx.New(errorx.BadRequest, "Invalid email format")
	}

	if !common.HandleRegex.MatchString(req.Handle) {
		return nil, errorx.New(errorx.BadRequest,
			"Handle must be 3-30 characters, lowercase alphanumeric and underscore only")
	}

	if crypto.CheckPasswordStrength(req.Password) == crypto.PasswordWeak {
		return nil, errorx.New(errorx.BadRequest,
			"Password must be at least 8 characters with uppercase, lowercase, and numbers")
	}

	_, err := d.userRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, errorx.New(errorx.AlreadyExists, "Email already registered")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get user by email: %v", err)
		return nil, errorx.Unknown
	}

	exists, err := d.userRepo.ExistsHandle(ctx, req.Handle)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check handle: %v", err)
		return nil, errorx.Unknown
	}

	if exists {
		suggestion, err := common.GenerateHandle(ctx, d.userRepo, "", req.Handle)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot generate handle: %v", err)
			return nil, errorx.New(errorx.AlreadyExists, "Handle already taken")
		}

		return nil, errorx.New(errorx.AlreadyExists, "Handle already taken, %s is available", suggestion)
	}

	hash, salt, err := crypto.HashPassword(req.Password, "")
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot hash password: %v", err)
		return nil, errorx.Unknown
	}

	user := &entity.User{
		Base:         entity.Base{ID: uuid.NewString()},
		Name:         req.Name,
		Email:        sql.NullString{String: req.Email, Valid: true},
		Handle:       req.Handle,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         entity.UserRole,
	}

	if err := d.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errorx.New(errorx.AlreadyExists, "Email or handle already registered")
		}

		xcontext.Logger(ctx).Errorf("Cannot create user: %v", err)
		return nil, errorx.Unknown
	}

	token, err := generateAccessToken(ctx, user)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot generate access token: %v", err)
		return nil, errorx.Unknown
	}

	return &model.SignUpResponse{User: model.ConvertUser(user, nil), Token: token}, nil
}

func (d *authDomain) SignIn(ctx context.Context, req *model.SignInRequest) (*model.SignInResponse, error) {
	if missing := missingFields(map[string]string{
		"email":    req.Email,
		"password": req.Password,
	}, "email", "password"); len(missing) > 0 {
		return nil, errorx.New(errorx.BadRequest, "Missing required fields: %s", strings.Join(missing, ", "))
	}

	user, err := d.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid credentials")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user by email: %v", err)
		return nil, errorx.Unknown
	}

	if user.PasswordHash == "" {
		return nil, errorx.New(errorx.Unauthenticated, "This account signs in with a social provider")
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash, user.PasswordSalt) {
		return nil, errorx.New(errorx.Unauthenticated, "Invalid credentials")
	}

	token, err := generateAccessToken(ctx, user)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot generate access token: %v", err)
		return nil, errorx.Unknown
	}

	return &model.SignInResponse{User: model.ConvertUser(user, nil), Token: token}, nil
}

func (d *authDomain) SignOut(ctx context.Context, req *model.SignOutRequest) (*model.SignOutResponse, error) {
	return &model.SignOutResponse{Success: true, Message: "Signed out successfully"}, nil
}

func (d *authDomain) GetMe(ctx context.Context, req *model.GetMeRequest) (*model.GetMeResponse, error) {
	user, err := d.userRepo.GetByID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	accounts, err := d.socialAccountRepo.GetAllByUserID(ctx, user.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get linked accounts: %v", err)
		return nil, errorx.Unknown
	}

	resp := model.GetMeResponse(model.ConvertUser(user, accounts))
	return &resp, nil
}

// missingFields returns the names, in order, whose value is blank.
func missingFields(values map[string]string, names ...string) []string {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}

	return missing
}
