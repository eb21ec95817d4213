package service

import (
	"context"
	"time"

	"github.com/noah-isme/gin-admin-kit/internal/models"
)

// UserReader loads users. Missing users are reported as sql.ErrNoRows.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserRepository persists users. Create reports a duplicate email as
// errors.ErrEmailTaken.
type UserRepository interface {
	UserReader
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateRole(ctx context.Context, id string, role models.UserRole, updatedAt time.Time) error
}

// RefreshTokenRepository persists hashed refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
	RevokeForUser(ctx context.Context, userID string, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// UnitOfWork exposes repositories bound to one transaction.
type UnitOfWork interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
}

// UnitOfWorkFactory runs fn inside a transaction. The transaction commits
// when fn returns nil and rolls back otherwise, including when fn panics.
type UnitOfWorkFactory interface {
	Do(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
