// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/araw/ship-ledger/models"
	"gorm.io/gorm"
)

// TransactionRepositoryImpl implements TransactionRepository for any of the
// three transaction tables. The tables share the filterable columns, so the
// implementation is generic over the entity type.
type TransactionRepositoryImpl[T any] struct {
	*BaseRepository[T, models.TransactionFilter]
}

// NewLoadingRepository creates a new loading transaction repository
func NewLoadingRepository(db *gorm.DB) LoadingRepository {
	return &TransactionRepositoryImpl[models.LoadingTransaction]{
		BaseRepository: NewBaseRepository[models.LoadingTransaction, models.TransactionFilter](db),
	}
}

// NewDischargeRepository creates a new discharge transaction repository
func NewDischargeRepository(db *gorm.DB) DischargeRepository {
	return &TransactionRepositoryImpl[models.DischargeTransaction]{
		BaseRepository: NewBaseRepository[models.DischargeTransaction, models.TransactionFilter](db),
	}
}

// NewExpenseRepository creates a new expense transaction repository
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &TransactionRepositoryImpl[models.ExpenseTransaction]{
		BaseRepository: NewBaseRepository[models.ExpenseTransaction, models.TransactionFilter](db),
	}
}

// ByFilter retrieves transactions matching the filter, newest date first.
func (r *TransactionRepositoryImpl[T]) ByFilter(ctx context.Context, filter models.TransactionFilter) ([]*T, error) {
	db := r.getDB(ctx)

	var entity T
	query := db.Model(&entity)

	if filter.ShipName != nil {
		query = query.Where("ship_name = ?", *filter.ShipName)
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", *filter.DateTo)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var entities []*T
	if err := query.Order("date DESC, id DESC").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to find transactions by filter: %w", err)
	}

	return entities, nil
}

// DeleteByID removes a single transaction. Returns false when no row matched;
// a missing row is not an error because batch deletes tolerate stale ids.
func (r *TransactionRepositoryImpl[T]) DeleteByID(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)

	var entity T
	result := db.Delete(&entity, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete transaction %d: %w", id, result.Error)
	}

	return result.RowsAffected > 0, nil
}

// DistinctShipNames lists the ship names present in this table.
func (r *TransactionRepositoryImpl[T]) DistinctShipNames(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)

	var entity T
	var names []string
	err := db.Model(&entity).Distinct("ship_name").Order("ship_name ASC").Pluck("ship_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ship names: %w", err)
	}

	return names, nil
}
