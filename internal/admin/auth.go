package admin

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("admin: invalid credentials")
	ErrPrincipalNotFound  = errors.New("admin: principal not found")
	ErrLoginThrottled     = errors.New("admin: too many login attempts")
)

// Principal is an authenticated admin user.
type Principal struct {
	ID          string
	Username    string
	DisplayName string
	IsAdmin     bool
}

// AuthProvider resolves admin credentials and session identities.
type AuthProvider interface {
	Authenticate(ctx context.Context, username, password string) (*Principal, error)
	GetUser(ctx context.Context, id string) (*Principal, error)
}
