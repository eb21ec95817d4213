package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/gin-admin-kit/internal/models"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
)

const tokenTypeBearer = "bearer"

func handleRegisterUser(ctx context.Context, cmd RegisterUser, deps CommandDeps) (*models.TokenPair, error) {
	now := deps.now()
	user, err := newUser(cmd.Name, cmd.Email, now)
	if err != nil {
		return nil, err
	}
	hash, err := deps.Hasher.Hash(cmd.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	user.PasswordHash = hash

	var pair *models.TokenPair
	err = deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := ensureEmailFree(ctx, uow.Users(), user.Email); err != nil {
			return err
		}
		if err := uow.Users().Create(ctx, user); err != nil {
			return persistErr(err, "failed to create user")
		}
		var err error
		pair, err = issueTokens(ctx, uow, deps, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	deps.audit(ctx, models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "auth",
		ResourceID: &user.ID,
		IPAddress:  cmd.ClientIP,
	})
	return pair, nil
}

func handleLoginUser(ctx context.Context, cmd LoginUser, deps CommandDeps) (*models.TokenPair, error) {
	now := deps.now()
	email := normalizeEmail(cmd.Email)

	var (
		pair *models.TokenPair
		user *models.User
	)
	err := deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		user, err = uow.Users().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrInvalidCredentials
			}
			return appErrors.Internal(err, "failed to fetch user")
		}
		if !deps.Hasher.Verify(user.PasswordHash, cmd.Password) {
			return appErrors.ErrInvalidCredentials
		}
		pair, err = issueTokens(ctx, uow, deps, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	deps.audit(ctx, models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  cmd.ClientIP,
	})
	return pair, nil
}

func handleRefreshToken(ctx context.Context, cmd RefreshToken, deps CommandDeps) (*models.TokenPair, error) {
	claims, err := deps.Tokens.Parse(cmd.Token)
	if err != nil {
		if errors.Is(err, appErrors.ErrTokenExpired) {
			return nil, err
		}
		return nil, appErrors.ErrInvalidToken
	}
	if claims.Type != models.TokenTypeRefresh {
		return nil, appErrors.ErrInvalidToken
	}

	now := deps.now()
	var pair *models.TokenPair
	err = deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		record, err := uow.RefreshTokens().FindByHash(ctx, HashToken(cmd.Token))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrTokenRevoked
			}
			return appErrors.Internal(err, "failed to fetch refresh token")
		}
		if record.Revoked() {
			return appErrors.ErrTokenRevoked
		}
		if record.Expired(now) {
			return appErrors.ErrTokenExpired
		}

		user, err := uow.Users().FindByID(ctx, record.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrInvalidToken
			}
			return appErrors.Internal(err, "failed to load user")
		}

		if err := uow.RefreshTokens().Revoke(ctx, record.ID, now); err != nil {
			return appErrors.Internal(err, "failed to revoke refresh token")
		}
		pair, err = issueTokens(ctx, uow, deps, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// handleLogoutUser is idempotent: unknown or already revoked tokens succeed.
func handleLogoutUser(ctx context.Context, cmd LogoutUser, deps CommandDeps) (struct{}, error) {
	now := deps.now()
	var revoked *models.RefreshToken
	err := deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		record, err := uow.RefreshTokens().FindByHash(ctx, HashToken(cmd.Token))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return appErrors.Internal(err, "failed to fetch refresh token")
		}
		if record.Revoked() {
			return nil
		}
		if err := uow.RefreshTokens().Revoke(ctx, record.ID, now); err != nil {
			return appErrors.Internal(err, "failed to revoke refresh token")
		}
		revoked = record
		return nil
	})
	if err != nil {
		return struct{}{}, err
	}

	if revoked != nil {
		deps.audit(ctx, models.AuditLog{
			UserID:     &revoked.UserID,
			Action:     models.AuditActionLogout,
			Resource:   "auth",
			ResourceID: &revoked.UserID,
			NewValues:  []byte(`{"status":"logout"}`),
			IPAddress:  cmd.ClientIP,
		})
	}
	return struct{}{}, nil
}

func handleChangePassword(ctx context.Context, cmd ChangePassword, deps CommandDeps) (struct{}, error) {
	if _, err := uuid.Parse(cmd.UserID); err != nil {
		return struct{}{}, appErrors.ErrInvalidUserID
	}

	now := deps.now()
	err := deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		user, err := uow.Users().FindByID(ctx, cmd.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrUserNotFound
			}
			return appErrors.Internal(err, "failed to load user")
		}
		if !deps.Hasher.Verify(user.PasswordHash, cmd.OldPassword) {
			return appErrors.ErrInvalidPassword
		}

		hash, err := deps.Hasher.Hash(cmd.NewPassword)
		if err != nil {
			return appErrors.Internal(err, "failed to hash password")
		}
		if err := uow.Users().UpdatePassword(ctx, user.ID, hash, now); err != nil {
			return appErrors.Internal(err, "failed to update password")
		}
		if err := uow.RefreshTokens().RevokeForUser(ctx, user.ID, now); err != nil {
			return appErrors.Internal(err, "failed to revoke refresh tokens")
		}
		return nil
	})
	if err != nil {
		return struct{}{}, err
	}

	deps.audit(ctx, models.AuditLog{
		UserID:     &cmd.UserID,
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &cmd.UserID,
		NewValues:  []byte(`{"status":"changed"}`),
	})
	return struct{}{}, nil
}

func issueTokens(ctx context.Context, uow UnitOfWork, deps CommandDeps, user *models.User, now time.Time) (*models.TokenPair, error) {
	access, err := deps.Tokens.IssueAccess(user, now)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	record := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(deps.Tokens.RefreshTTL()),
		CreatedAt: now,
	}
	refresh, err := deps.Tokens.IssueRefresh(user.ID, record.ID, now)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create refresh token")
	}
	record.TokenHash = HashToken(refresh)

	if err := uow.RefreshTokens().Create(ctx, record); err != nil {
		return nil, appErrors.Internal(err, "failed to persist refresh token")
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(deps.Tokens.AccessTTL().Seconds()),
	}, nil
}
