// Package testing provides test utilities and database setup for the ship ledger
package testing

import (
	"fmt"

	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/utils"

	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAdmin creates an admin account with the given credentials
func (tf *TestFixtures) CreateTestAdmin(email, password string) (*models.AdminUser, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := utils.UTCNow()
	user := &models.AdminUser{
		Email:        utils.NormalizeEmail(email),
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	return user, nil
}

// CreateTestLoading creates a loading entry for the given ship and date
func (tf *TestFixtures) CreateTestLoading(shipName, date string) (*models.LoadingTransaction, error) {
	entry := &models.LoadingTransaction{
		ShipName:      shipName,
		Date:          date,
		IGType:        "IG-1",
		IGValue:       "1200",
		AEDPrice:      "3.67",
		TotalPaid:     "5000",
		CustomerMoney: "4500",
		MTType:        "MT",
		MTValue:       "320",
		USDRate:       "3.67",
		TotalValueAED: "18350",
		CreatedAt:     utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create loading entry: %w", err)
	}
	return entry, nil
}

// CreateTestDischarge creates a discharge entry for the given ship and date
func (tf *TestFixtures) CreateTestDischarge(shipName, date string) (*models.DischargeTransaction, error) {
	entry := &models.DischargeTransaction{
		ShipName:          shipName,
		Date:              date,
		IGType:            "IG-2",
		MTValue:           "210",
		IGValue:           "800",
		RateUSD:           "3.65",
		DischargeTo:       "Port A",
		InternalDischarge: "internal note",
		ShipTarget:        "Vessel B",
		USDPerMT:          "410",
		CreatedAt:         utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create discharge entry: %w", err)
	}
	return entry, nil
}

// CreateTestExpense creates an expense entry for the given ship and date
func (tf *TestFixtures) CreateTestExpense(shipName, date string) (*models.ExpenseTransaction, error) {
	entry := &models.ExpenseTransaction{
		ShipName:       shipName,
		Date:           date,
		RemainingCash:  "1000",
		ReceivedAmount: "2500",
		ReceivedFrom:   "Office",
		GivenTo:        "Captain",
		ToShip:         "Vessel C",
		NewCash:        "3500",
		CreatedAt:      utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create expense entry: %w", err)
	}
	return entry, nil
}
