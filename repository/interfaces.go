// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/araw/ship-ledger/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
}

// AdminUserRepository defines operations for admin user accounts
type AdminUserRepository interface {
	Repository[models.AdminUser, models.AdminUserFilter]
	ByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	SetOTP(ctx context.Context, userID uint, code string, issuedAt time.Time) error
	ClearOTP(ctx context.Context, userID uint) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
}

// TransactionRepository defines operations shared by the three transaction
// collections. The three tables have identical filterable columns (date,
// ship_name), so one generic contract covers them all.
type TransactionRepository[T any] interface {
	Repository[T, models.TransactionFilter]
	ByFilter(ctx context.Context, filter models.TransactionFilter) ([]*T, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	DistinctShipNames(ctx context.Context) ([]string, error)
}

// LoadingRepository defines operations for loading transactions
type LoadingRepository = TransactionRepository[models.LoadingTransaction]

// DischargeRepository defines operations for discharge transactions
type DischargeRepository = TransactionRepository[models.DischargeTransaction]

// ExpenseRepository defines operations for expense transactions
type ExpenseRepository = TransactionRepository[models.ExpenseTransaction]

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ByFilter(ctx context.Context, filter models.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error)
}
