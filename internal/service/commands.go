package service

import (
	"context"
	"time"

	"github.com/noah-isme/gin-admin-kit/internal/bus"
	"github.com/noah-isme/gin-admin-kit/internal/models"
)

// RegisterUser creates an account with a password and signs it in.
type RegisterUser struct {
	Name     string
	Email    string
	Password string
	ClientIP string
}

// LoginUser exchanges credentials for a token pair.
type LoginUser struct {
	Email    string
	Password string
	ClientIP string
}

// RefreshToken rotates a refresh token.
type RefreshToken struct {
	Token string
}

// LogoutUser revokes a refresh token.
type LogoutUser struct {
	Token    string
	ClientIP string
}

// ChangePassword replaces a user's password after checking the old one.
type ChangePassword struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// CreateUser creates an account without a password.
type CreateUser struct {
	Name  string
	Email string
}

// PromoteUser grants the admin role to the user with Email.
type PromoteUser struct {
	Email string
}

// PurgeTokens deletes refresh tokens that expired before Before or were revoked.
type PurgeTokens struct {
	Before time.Time
}

// GetUser loads one user.
type GetUser struct {
	UserID string
}

// AuditRecorder accepts audit entries without blocking the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// CommandDeps are the collaborators passed to every command handler.
type CommandDeps struct {
	UoW    UnitOfWorkFactory
	Hasher PasswordHasher
	Tokens *TokenService
	Audit  AuditRecorder
	Clock  func() time.Time
}

func (d CommandDeps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

func (d CommandDeps) audit(ctx context.Context, entry models.AuditLog) {
	if d.Audit == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = d.now()
	}
	d.Audit.Record(ctx, entry)
}

// QueryDeps are the collaborators passed to every query handler.
type QueryDeps struct {
	Users UserReader
}

// CommandBus and QueryBus are the buses used by the application.
type (
	CommandBus = bus.CommandBus[CommandDeps]
	QueryBus   = bus.QueryBus[QueryDeps]
)

// NewBuses returns command and query buses with every handler registered.
func NewBuses() (*CommandBus, *QueryBus, error) {
	commands := bus.NewCommandBus[CommandDeps]()
	queries := bus.NewQueryBus[QueryDeps]()
	if err := RegisterHandlers(commands, queries); err != nil {
		return nil, nil, err
	}
	return commands, queries, nil
}

// RegisterHandlers binds every command and query handler.
func RegisterHandlers(commands *CommandBus, queries *QueryBus) error {
	registrations := []func() error{
		func() error { return bus.RegisterCommand(commands, handleRegisterUser) },
		func() error { return bus.RegisterCommand(commands, handleLoginUser) },
		func() error { return bus.RegisterCommand(commands, handleRefreshToken) },
		func() error { return bus.RegisterCommand(commands, handleLogoutUser) },
		func() error { return bus.RegisterCommand(commands, handleChangePassword) },
		func() error { return bus.RegisterCommand(commands, handleCreateUser) },
		func() error { return bus.RegisterCommand(commands, handlePromoteUser) },
		func() error { return bus.RegisterCommand(commands, handlePurgeTokens) },
		func() error { return bus.RegisterQuery(queries, handleGetUser) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
