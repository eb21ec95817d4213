package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
	"github.com/noah-isme/gin-admin-kit/internal/models"
)

// UserAdminDAO exposes the users table to the admin panel. Records carry
// id, name, email, role, created_at and updated_at; password hashes never
// leave the repository.
type UserAdminDAO struct {
	users *UserRepository
}

// NewUserAdminDAO constructs a UserAdminDAO.
func NewUserAdminDAO(users *UserRepository) *UserAdminDAO {
	return &UserAdminDAO{users: users}
}

func (d *UserAdminDAO) List(ctx context.Context, offset, limit int, search string) ([]admin.Record, int, error) {
	users, total, err := d.users.List(ctx, models.UserFilter{Search: search, Offset: offset, Limit: limit})
	if err != nil {
		return nil, 0, err
	}
	out := make([]admin.Record, 0, len(users))
	for i := range users {
		out = append(out, userRecord(&users[i]))
	}
	return out, total, nil
}

func (d *UserAdminDAO) Get(ctx context.Context, id string) (admin.Record, error) {
	user, err := d.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return userRecord(user), nil
}

func (d *UserAdminDAO) Create(ctx context.Context, data map[string]any) (admin.Record, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyUserData(user, data); err != nil {
		return nil, err
	}
	if err := d.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return userRecord(user), nil
}

func (d *UserAdminDAO) Update(ctx context.Context, id string, data map[string]any) (admin.Record, error) {
	user, err := d.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyUserData(user, data); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now().UTC()
	if err := d.users.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrRecordNotFound
		}
		return nil, err
	}
	return userRecord(user), nil
}

func (d *UserAdminDAO) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return admin.ErrRecordNotFound
	}
	if err := d.users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return admin.ErrRecordNotFound
		}
		return err
	}
	return nil
}

// find treats ids that are not UUIDs as missing so Postgres never sees them.
func (d *UserAdminDAO) find(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, admin.ErrRecordNotFound
	}
	user, err := d.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrRecordNotFound
		}
		return nil, err
	}
	return user, nil
}

func applyUserData(user *models.User, data map[string]any) error {
	if v, ok := data["name"]; ok && v != nil {
		user.Name = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := data["email"]; ok && v != nil {
		user.Email = strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
	if v, ok := data["role"]; ok && v != nil {
		switch role := models.UserRole(fmt.Sprint(v)); role {
		case models.RoleAdmin, models.RoleUser:
			user.Role = role
		default:
			return fmt.Errorf("unknown role %q", role)
		}
	}
	return nil
}

func userRecord(u *models.User) admin.Record {
	return admin.Record{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       string(u.Role),
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}
