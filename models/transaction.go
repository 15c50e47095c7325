// Package models contains domain entities and business models for the ship ledger
package models

import (
	"time"
)

// Transaction kind constants. The kind doubles as the prefix of the synthetic
// result id ("loading_42") and therefore must never change once issued.
const (
	KindLoading   = "loading"
	KindDischarge = "discharge"
	KindExpense   = "expense"
)

// LoadingTransaction records product taken on board. Numeric-looking fields
// are carried as the strings submitted by the form; arithmetic happens client
// side and the ledger stores what was entered.
type LoadingTransaction struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Date     string `gorm:"size:10;not null;index:idx_loading_date" json:"date"` // YYYY-MM-DD
	ShipName string `gorm:"size:255;not null;index:idx_loading_ship_name" json:"shipName"`

	IGType        string `gorm:"size:64" json:"igType"`
	IGValue       string `gorm:"size:64" json:"igValue"`
	AEDPrice      string `gorm:"size:64" json:"aedPrice"`
	TotalPaid     string `gorm:"size:64" json:"totalPaid"`
	CustomerMoney string `gorm:"size:64" json:"customerMoney"`
	MTType        string `gorm:"size:64" json:"mtType"`
	MTValue       string `gorm:"size:64" json:"mtValue"`
	USDRate       string `gorm:"size:64" json:"usdRate"`
	TotalValueAED string `gorm:"size:64" json:"totalValueAED"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_loading_created_at" json:"created_at"`
}

func (LoadingTransaction) TableName() string {
	return "loading_transactions"
}

// DischargeTransaction records product leaving the ship.
type DischargeTransaction struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Date     string `gorm:"size:10;not null;index:idx_discharge_date" json:"date"`
	ShipName string `gorm:"size:255;not null;index:idx_discharge_ship_name" json:"shipName"`

	IGType            string `gorm:"size:64" json:"igType"`
	MTValue           string `gorm:"size:64" json:"mtValue"`
	IGValue           string `gorm:"size:64" json:"igValue"`
	RateUSD           string `gorm:"size:64" json:"rateUsd"`
	DischargeTo       string `gorm:"size:255" json:"dischargeTo"`
	InternalDischarge string `gorm:"size:255" json:"internalDischarge"`
	IGToValue         string `gorm:"size:64" json:"igToValue"`
	ShipTarget        string `gorm:"size:255" json:"shipTarget"`
	USDPerMT          string `gorm:"size:64" json:"usdPerMT"`
	Difference        string `gorm:"size:64" json:"difference"`
	MoneySent         string `gorm:"size:64" json:"moneySent"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_discharge_created_at" json:"created_at"`
}

func (DischargeTransaction) TableName() string {
	return "discharge_transactions"
}

// ExpenseTransaction records cash movements around a ship.
type ExpenseTransaction struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Date     string `gorm:"size:10;not null;index:idx_expense_date" json:"date"`
	ShipName string `gorm:"size:255;not null;index:idx_expense_ship_name" json:"shipName"`

	RemainingCash  string `gorm:"size:64" json:"remainingCash"`
	ReceivedAmount string `gorm:"size:64" json:"receivedAmount"`
	ReceivedFrom   string `gorm:"size:255" json:"receivedFrom"`
	GivenTo        string `gorm:"size:255" json:"givenTo"`
	ToShip         string `gorm:"size:255" json:"toShip"`
	NewCash        string `gorm:"size:64" json:"newCash"`
	CargoOnShip    string `gorm:"size:64" json:"cargoOnShip"`
	FromOtherText  string `gorm:"size:255" json:"fromOtherText"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_expense_created_at" json:"created_at"`
}

func (ExpenseTransaction) TableName() string {
	return "expense_transactions"
}

// TransactionFilter represents the shared filter criteria applied to all
// three transaction tables when building the results view. Date bounds are
// inclusive and compared on the YYYY-MM-DD string, which orders like the
// calendar does.
type TransactionFilter struct {
	ShipName      *string
	DateFrom      *string
	DateTo        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
