package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/gin-admin-kit/internal/models"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
)

// newUser validates name and email and returns an unsaved user with the
// default role.
func newUser(name, email string, now time.Time) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.ErrInvalidName
	}
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, appErrors.ErrInvalidEmail
	}
	return &models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ensureEmailFree(ctx context.Context, users UserReader, email string) error {
	_, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return appErrors.ErrEmailTaken
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return appErrors.Internal(err, "failed to look up user")
	}
}

// persistErr keeps typed errors such as ErrEmailTaken and hides the rest.
func persistErr(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}

func handleCreateUser(ctx context.Context, cmd CreateUser, deps CommandDeps) (*models.User, error) {
	user, err := newUser(cmd.Name, cmd.Email, deps.now())
	if err != nil {
		return nil, err
	}

	err = deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := ensureEmailFree(ctx, uow.Users(), user.Email); err != nil {
			return err
		}
		if err := uow.Users().Create(ctx, user); err != nil {
			return persistErr(err, "failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deps.audit(ctx, models.AuditLog{
		Action:     models.AuditActionCreate,
		Resource:   "users",
		ResourceID: &user.ID,
	})
	return user, nil
}

func handlePromoteUser(ctx context.Context, cmd PromoteUser, deps CommandDeps) (*models.User, error) {
	now := deps.now()
	var user *models.User
	err := deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		user, err = uow.Users().FindByEmail(ctx, normalizeEmail(cmd.Email))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrUserNotFound
			}
			return appErrors.Internal(err, "failed to load user")
		}
		if user.Role == models.RoleAdmin {
			return nil
		}
		if err := uow.Users().UpdateRole(ctx, user.ID, models.RoleAdmin, now); err != nil {
			return appErrors.Internal(err, "failed to update role")
		}
		user.Role = models.RoleAdmin
		user.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func handlePurgeTokens(ctx context.Context, cmd PurgeTokens, deps CommandDeps) (int64, error) {
	before := cmd.Before
	if before.IsZero() {
		before = deps.now()
	}
	var purged int64
	err := deps.UoW.Do(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		purged, err = uow.RefreshTokens().DeleteExpired(ctx, before)
		if err != nil {
			return appErrors.Internal(err, "failed to purge refresh tokens")
		}
		return nil
	})
	return purged, err
}

func handleGetUser(ctx context.Context, q GetUser, deps QueryDeps) (*models.User, error) {
	if _, err := uuid.Parse(q.UserID); err != nil {
		return nil, appErrors.ErrUserNotFound
	}
	user, err := deps.Users.FindByID(ctx, q.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}
