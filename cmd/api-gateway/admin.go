package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
	"github.com/noah-isme/gin-admin-kit/internal/middleware"
	"github.com/noah-isme/gin-admin-kit/internal/repository"
	"github.com/noah-isme/gin-admin-kit/internal/service"
	"github.com/noah-isme/gin-admin-kit/internal/session"
	"github.com/noah-isme/gin-admin-kit/pkg/config"
)

// defaultUserDefinition is the users layout used when no definitions file
// overrides it.
var defaultUserDefinition = admin.Definition{
	Name:        "users",
	DisplayName: "Users",
	IDField:     "id",
	Icon:        "people",
	Columns: []admin.Column{
		{Name: "id", Label: "ID", LinkToDetail: true},
		{Name: "name", Label: "Name", LinkToDetail: true},
		{Name: "email", Label: "Email"},
		{Name: "role", Label: "Role"},
	},
	Fields: []admin.Field{
		{Name: "name", Label: "Name", Type: admin.FieldText, Placeholder: "Full name"},
		{Name: "email", Label: "Email", Type: admin.FieldText, Placeholder: "user@example.com"},
		{Name: "role", Label: "Role", Type: admin.FieldSelect, Choices: []admin.Choice{
			{Value: "user", Label: "User"},
			{Value: "admin", Label: "Admin"},
		}},
	},
}

// errUnboundDefinition is returned for definitions no storage backs.
var errUnboundDefinition = errors.New("admin definition has no storage binding")

// resolveUserDefinition picks the users layout out of defs. Only the users
// resource has a DAO, so any other entry is a configuration error.
func resolveUserDefinition(defs admin.Definitions) (admin.Definition, error) {
	def := defaultUserDefinition
	var unbound []string
	for _, candidate := range defs.Resources {
		if candidate.Name == def.Name {
			def = candidate
			continue
		}
		unbound = append(unbound, candidate.Name)
	}
	if len(unbound) > 0 {
		return admin.Definition{}, fmt.Errorf("%w: %s (only %q is supported)",
			errUnboundDefinition, strings.Join(unbound, ", "), defaultUserDefinition.Name)
	}
	return def, nil
}

type adminDeps struct {
	cfg       *config.Config
	db        *sqlx.DB
	users     service.UserReader
	hasher    service.PasswordHasher
	sessions  *session.Manager
	limiter   *middleware.RateLimiter
	logger    *zap.Logger
	observers []admin.Observer
}

func buildAdminSite(d adminDeps) (*admin.Site, error) {
	auth, err := buildAdminAuth(d)
	if err != nil {
		return nil, err
	}

	opts := admin.SiteOptions{
		Title:     d.cfg.Admin.Title,
		Prefix:    d.cfg.Admin.Prefix,
		Auth:      auth,
		Sessions:  d.sessions,
		Logger:    d.logger.Named("admin"),
		Observers: d.observers,
	}
	if d.limiter != nil {
		opts.LoginLimiter = d.limiter
	}
	site, err := admin.NewSite(opts)
	if err != nil {
		return nil, err
	}

	def := defaultUserDefinition
	if d.cfg.Admin.ResourcesFile != "" {
		defs, err := admin.LoadDefinitions(d.cfg.Admin.ResourcesFile)
		if err != nil {
			return nil, err
		}
		if def, err = resolveUserDefinition(defs); err != nil {
			return nil, fmt.Errorf("%s: %w", d.cfg.Admin.ResourcesFile, err)
		}
	}
	if def.PageSize == 0 {
		def.PageSize = d.cfg.Admin.PageSize
	}

	var dao admin.DAO
	switch d.cfg.Admin.Storage {
	case config.BackendPostgres:
		dao = repository.NewUserAdminDAO(repository.NewUserRepository(d.db))
	default:
		dao = repository.NewMemoryUserDAO()
	}

	resource, err := def.Build(dao)
	if err != nil {
		return nil, fmt.Errorf("build %s resource: %w", def.Name, err)
	}
	if err := site.Register(resource); err != nil {
		return nil, err
	}
	return site, nil
}

func buildAdminAuth(d adminDeps) (admin.AuthProvider, error) {
	if d.cfg.Admin.Auth == config.AuthUsers {
		return service.NewUserAdminProvider(d.users, d.hasher), nil
	}
	return service.NewStaticAdminProvider(d.cfg.Admin.Username, d.cfg.Admin.Password, d.hasher)
}
