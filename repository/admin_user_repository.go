// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/utils"
	"gorm.io/gorm"
)

// AdminUserRepositoryImpl implements AdminUserRepository interface
type AdminUserRepositoryImpl struct {
	*BaseRepository[models.AdminUser, models.AdminUserFilter]
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db *gorm.DB) AdminUserRepository {
	return &AdminUserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdminUser, models.AdminUserFilter](db),
	}
}

// ByEmail retrieves an admin user by email address. The lookup is
// case-insensitive; rows store the canonical lower-case form.
func (r *AdminUserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	db := r.getDB(ctx)

	var user models.AdminUser
	err := db.Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find admin user by email: %w", err)
	}

	return &user, nil
}

// SetOTP stores a freshly issued code against the user, overwriting any
// previously pending one.
func (r *AdminUserRepositoryImpl) SetOTP(ctx context.Context, userID uint, code string, issuedAt time.Time) error {
	db := r.getDB(ctx)

	err := db.Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"otp":            code,
			"otp_created_at": issuedAt,
			"updated_at":     utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

// ClearOTP removes the pending code so it cannot be replayed.
func (r *AdminUserRepositoryImpl) ClearOTP(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)

	err := db.Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"otp":            nil,
			"otp_created_at": nil,
			"updated_at":     utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear OTP: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored hash and clears the pending OTP and its
// issuance timestamp in the same statement.
func (r *AdminUserRepositoryImpl) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	db := r.getDB(ctx)

	err := db.Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_hash":  passwordHash,
			"otp":            nil,
			"otp_created_at": nil,
			"updated_at":     utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
