package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/models"
	"gorm.io/gorm"
)

var userSchema = Schema{
	Table: "users",
	Fillable: []string{
		"username", "email", "password_hash", "first_name", "last_name",
		"role", "is_active", "last_login", "email_verified_at",
	},
	Hidden:     []string{"password_hash"},
	Searchable: []string{"username", "email", "first_name", "last_name"},
	Timestamps: true,
}

// UserRepository manages user accounts. Users are deactivated, never deleted.
type UserRepository struct {
	*Repository[models.User]
}

// NewUserRepository builds a UserRepository on g.
func NewUserRepository(g *db.Gateway) *UserRepository {
	return &UserRepository{Repository: New[models.User](g, userSchema)}
}

// FindByEmail returns the user with email, without the password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.FindBy(ctx, "email", email)
}

// FindByUsername returns the user with username, without the password hash.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.FindBy(ctx, "username", username)
}

// FindForLogin returns the user with email including the password hash.
func (r *UserRepository) FindForLogin(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.g.Conn(ctx).Take(&u, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository.UserRepository.FindForLogin: %w: %w", db.ErrQueryFailed, err)
	}
	return &u, nil
}

// IsEmailTaken reports whether another user already uses email.
func (r *UserRepository) IsEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.Exists(ctx, "email", email, excludeID)
}

// IsUsernameTaken reports whether another user already uses username.
func (r *UserRepository) IsUsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	return r.Exists(ctx, "username", username, excludeID)
}

// UpdateLastLogin stamps the login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.Update(ctx, id, db.Fields{"last_login": at})
	return err
}

// SetActive activates or deactivates an account.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	return r.Update(ctx, id, db.Fields{"is_active": active})
}

// SetRole changes the role of an account.
func (r *UserRepository) SetRole(ctx context.Context, id string, role models.Role) (bool, error) {
	if role != models.RoleAdmin && role != models.RoleUser {
		return false, fmt.Errorf("repository.UserRepository.SetRole: unknown role %q", role)
	}
	return r.Update(ctx, id, db.Fields{"role": string(role)})
}

// RoleOf returns the role of an active user, or ErrNotFound.
func (r *UserRepository) RoleOf(ctx context.Context, id string) (models.Role, error) {
	u, err := r.Find(ctx, id)
	if err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", ErrNotFound
	}
	return u.Role, nil
}

// Delete is not supported for users; deactivate them instead.
func (r *UserRepository) Delete(context.Context, string) (bool, error) {
	return false, errors.New("repository.UserRepository.Delete: users are deactivated, not deleted")
}
