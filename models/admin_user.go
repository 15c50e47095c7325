// Package models contains domain entities and business models for the ship ledger
package models

import (
	"time"
)

// AdminUser is an administrator account. Rows are seeded out-of-band; the
// application only ever mutates the OTP fields and the password hash.
type AdminUser struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"size:255;not null;uniqueIndex:uk_admin_users_email" json:"email"` // stored lower-case
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	OTP          *string    `gorm:"size:6" json:"-"` // pending one-time code, nil when none
	OTPCreatedAt *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}

// HasPendingOTP reports whether a code is stored for this user.
func (u *AdminUser) HasPendingOTP() bool {
	return u.OTP != nil && *u.OTP != ""
}

// OTPExpired reports whether the pending code is older than the given TTL.
// A missing issuance timestamp counts as expired so that legacy rows cannot
// verify with a stale code.
func (u *AdminUser) OTPExpired(ttl time.Duration, now time.Time) bool {
	if u.OTPCreatedAt == nil {
		return true
	}
	return now.After(u.OTPCreatedAt.Add(ttl))
}

// AdminUserFilter represents filter criteria for admin user queries
type AdminUserFilter struct {
	ID    *uint
	Email *string
}
