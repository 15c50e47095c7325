// Package models contains domain entities and business models for the ship ledger
package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CorrelationID uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_logs_correlation_id" json:"correlation_id"`
	Email         *string   `gorm:"size:255;index:idx_audit_logs_email" json:"email,omitempty"`
	Action        string    `gorm:"size:64;not null;index:idx_audit_logs_action" json:"action"`
	Description   *string   `gorm:"type:text" json:"description,omitempty"`
	Success       *bool     `json:"success,omitempty"`
	ErrorMessage  *string   `gorm:"type:text" json:"error_message,omitempty"`
	IPAddress     *string   `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent     *string   `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID     *string   `gorm:"size:64" json:"request_id,omitempty"`
	CreatedAt     time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_audit_logs_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit action constants
const (
	AuditActionLoginOTPSent        = "login_otp_sent"
	AuditActionLoginFailed         = "login_failed"
	AuditActionLoginSuccess        = "login_success"
	AuditActionLogout              = "logout"
	AuditActionResetOTPSent        = "reset_otp_sent"
	AuditActionResetOTPVerified    = "reset_otp_verified"
	AuditActionPasswordResetFailed = "password_reset_failed"
	AuditActionPasswordResetDone   = "password_reset_completed"
	AuditActionResultsDeleted      = "results_deleted"
	AuditActionResultsRestored     = "results_restored"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	Email         *string
	Action        *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
