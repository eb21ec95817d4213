package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/gin-admin-kit/internal/bus"
	"github.com/noah-isme/gin-admin-kit/internal/models"
	"github.com/noah-isme/gin-admin-kit/internal/repository"
	"github.com/noah-isme/gin-admin-kit/internal/service"
	"github.com/noah-isme/gin-admin-kit/pkg/config"
	"github.com/noah-isme/gin-admin-kit/pkg/database"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
	"github.com/noah-isme/gin-admin-kit/pkg/logger"
)

// runtimeDeps opens the database and builds the command bus with its
// collaborators. close releases them.
type runtimeDeps struct {
	commands *service.CommandBus
	deps     service.CommandDeps
	logger   *zap.Logger
	close    func()
}

func openRuntime(ctx context.Context) (*runtimeDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	commands, _, err := service.NewBuses()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &runtimeDeps{
		commands: commands,
		deps: service.CommandDeps{
			UoW:    repository.NewSQLUnitOfWork(db, logr.Named("uow"), nil),
			Hasher: service.NewBcryptHasher(bcrypt.DefaultCost),
			Tokens: service.NewTokenService(service.TokenConfig{
				Secret:     cfg.JWT.Secret,
				AccessTTL:  cfg.JWT.Expiration,
				RefreshTTL: cfg.JWT.RefreshExpiration,
				Issuer:     cfg.JWT.Issuer,
			}),
		},
		logger: logr,
		close: func() {
			_ = db.Close()
			_ = logr.Sync()
		},
	}, nil
}

func createAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user and grant it the admin role",
		Long: `Registers a user with the given credentials and promotes it to admin.
An existing user with the same email is promoted without changing its password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			user, err := createAdmin(ctx, rt.commands, rt.deps, name, email, password)
			if err != nil {
				return err
			}
			rt.logger.Info("admin ready", zap.String("user_id", user.ID), zap.String("email", user.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func createAdmin(ctx context.Context, commands *service.CommandBus, deps service.CommandDeps, name, email, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if name == "" {
		name = email
	}

	_, err := commands.Dispatch(ctx, service.RegisterUser{Name: name, Email: email, Password: password, ClientIP: "adminctl"}, deps)
	if err != nil && !errors.Is(err, appErrors.ErrEmailTaken) {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}

	user, err := bus.DispatchAs[*models.User](ctx, commands, service.PromoteUser{Email: email}, deps)
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", email, err)
	}
	return user, nil
}

func purgeTokensCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired and revoked refresh tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			deleted, err := bus.DispatchAs[int64](ctx, rt.commands, service.PurgeTokens{Before: time.Now().UTC().Add(-olderThan)}, rt.deps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d refresh tokens\n", deleted)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete tokens that expired at least this long ago")

	return cmd
}
