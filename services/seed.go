package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

// EnsureSuperAdmin tạo tài khoản superadmin từ env nếu email chưa tồn tại.
func EnsureSuperAdmin(ctx context.Context, store repository.Store, email, password string, logger *slog.Logger) error {
	if email == "" || password == "" {
		return nil
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err := store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{
		Name:        "Super Admin",
		Email:       email,
		Password:    hashed,
		Role:        models.RoleSuperAdmin,
		IsActive:    true,
		IsVerified:  true,
		Preferences: models.DefaultNotificationPreferences(),
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return err
	}
	logger.Info("superadmin account created", slog.String("email", email))
	return nil
}
