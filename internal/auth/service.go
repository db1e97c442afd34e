package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/internal/users"
	pkgauth "github.com/pixelvault/pixelvault-backend/pkg/auth"
	"github.com/pixelvault/pixelvault-backend/pkg/auth/session"
	"github.com/pixelvault/pixelvault-backend/pkg/config"
	"github.com/pixelvault/pixelvault-backend/pkg/db"
	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/security"
)

const (
	minPasswordLength = 8
	resetTokenLength  = 48
	resetTokenTTL     = 30 * time.Minute
)

type userStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type resetTokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	PasswordResetKey(userID string) string
}

// Service handles sign-up, sign-in, and the refresh/logout session lifecycle.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, email string) error
}

type service struct {
	users    userStore
	sessions sessionManager
	resets   resetTokenStore
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	now      func() time.Time
}

func NewService(store userStore, sessions sessionManager, resets resetTokenStore, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if resets == nil {
		return nil, fmt.Errorf("reset token store required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		users:    store,
		sessions: sessions,
		resets:   resets,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         enums.RoleUser,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	result, err := s.issueSession(ctx, user, session.NewAccessID())
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
	}
	loginAt := now
	result.User.LastLoginAt = &loginAt

	return result, nil
}

// Refresh rotates the session and mints a new access token. The role in the
// token is refreshed from the store, not carried over from the old claims.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, newAccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		_ = s.sessions.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		_ = s.sessions.Revoke(ctx, newAccessID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute / time.Second),
		User:         users.FromModel(user),
	}, nil
}

// Logout revokes the refresh session tied to the token's jti. Expired tokens
// are still accepted so users can always sign out.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// ForgotPassword issues a reset token for active accounts. The response is
// identical whether or not the email exists.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}
	if !user.IsActive {
		return nil
	}

	token, err := security.GenerateResetToken(resetTokenLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	key := s.resets.PasswordResetKey(user.ID.String())
	if err := s.resets.Set(ctx, key, token, resetTokenTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}
	return nil
}

func (s *service) issueSession(ctx context.Context, user *models.User, accessID string) (*AuthResult, error) {
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute / time.Second),
		User:         users.FromModel(user),
	}, nil
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}
	return trimmed, nil
}
