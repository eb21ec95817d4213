package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
	"github.com/noah-isme/gin-admin-kit/internal/models"
)

const staticAdminID = "1"

// StaticAdminProvider authenticates one configured admin account.
type StaticAdminProvider struct {
	username     string
	passwordHash string
	hasher       PasswordHasher
}

// NewStaticAdminProvider hashes password once at startup.
func NewStaticAdminProvider(username, password string, hasher PasswordHasher) (*StaticAdminProvider, error) {
	if username == "" || password == "" {
		return nil, errors.New("static admin provider requires a username and password")
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &StaticAdminProvider{username: username, passwordHash: hash, hasher: hasher}, nil
}

func (p *StaticAdminProvider) Authenticate(_ context.Context, username, password string) (*admin.Principal, error) {
	nameOK := subtle.ConstantTimeCompare([]byte(username), []byte(p.username)) == 1
	if !p.hasher.Verify(p.passwordHash, password) || !nameOK {
		return nil, admin.ErrInvalidCredentials
	}
	return p.principal(), nil
}

func (p *StaticAdminProvider) GetUser(_ context.Context, id string) (*admin.Principal, error) {
	if id != staticAdminID {
		return nil, admin.ErrPrincipalNotFound
	}
	return p.principal(), nil
}

func (p *StaticAdminProvider) principal() *admin.Principal {
	return &admin.Principal{ID: staticAdminID, Username: p.username, DisplayName: p.username, IsAdmin: true}
}

// UserAdminProvider authenticates admins against the users table using the
// email address as username.
type UserAdminProvider struct {
	users  UserReader
	hasher PasswordHasher
}

// NewUserAdminProvider constructs a UserAdminProvider.
func NewUserAdminProvider(users UserReader, hasher PasswordHasher) *UserAdminProvider {
	return &UserAdminProvider{users: users, hasher: hasher}
}

func (p *UserAdminProvider) Authenticate(ctx context.Context, username, password string) (*admin.Principal, error) {
	user, err := p.users.FindByEmail(ctx, normalizeEmail(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrInvalidCredentials
		}
		return nil, err
	}
	if !p.hasher.Verify(user.PasswordHash, password) {
		return nil, admin.ErrInvalidCredentials
	}
	return userPrincipal(user), nil
}

func (p *UserAdminProvider) GetUser(ctx context.Context, id string) (*admin.Principal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, admin.ErrPrincipalNotFound
	}
	user, err := p.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrPrincipalNotFound
		}
		return nil, err
	}
	return userPrincipal(user), nil
}

func userPrincipal(u *models.User) *admin.Principal {
	return &admin.Principal{ID: u.ID, Username: u.Email, DisplayName: u.Name, IsAdmin: u.IsAdmin()}
}
