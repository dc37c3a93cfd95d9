package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/cna-billing/internal/models"
	"gorm.io/gorm"
)

// SeedAdmin creates an active admin account when the users table is empty.
// It is a no-op when email or password is blank, or when any user exists.
func SeedAdmin(conn *gorm.DB, email, password string, hash func(string) (string, error), log *slog.Logger) (bool, error) {
	const op = "db.SeedAdmin"
	if email == "" || password == "" {
		return false, nil
	}
	var n int64
	if err := conn.Model(&models.User{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return false, nil
	}
	if hash == nil {
		return false, errors.New(op + ": no password hasher")
	}
	h, err := hash(password)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	now := time.Now().UTC()
	admin := models.User{
		Username:        "admin",
		Email:           email,
		PasswordHash:    h,
		FirstName:       "System",
		LastName:        "Administrator",
		Role:            models.RoleAdmin,
		IsActive:        true,
		EmailVerifiedAt: &now,
	}
	if err := conn.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&admin).Error
	}); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("seeded admin user", slog.String("email", email))
	return true, nil
}
