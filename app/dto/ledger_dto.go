package dto

// LoadingRequest carries the loading entry form fields
type LoadingRequest struct {
	ShipName      string `json:"shipName" validate:"required,max=255" example:"MV Horizon"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02" example:"2025-06-01"`
	IGType        string `json:"igType" validate:"max=255"`
	IGValue       string `json:"igValue" validate:"max=255"`
	AEDPrice      string `json:"aedPrice" validate:"max=255"`
	TotalPaid     string `json:"totalPaid" validate:"max=255"`
	CustomerMoney string `json:"customerMoney" validate:"max=255"`
	MTType        string `json:"mtType" validate:"max=255"`
	MTValue       string `json:"mtValue" validate:"max=255"`
	USDRate       string `json:"usdRate" validate:"max=255"`
	TotalValueAED string `json:"totalValueAED" validate:"max=255"`
}

// DischargeRequest carries the discharge entry form fields
type DischargeRequest struct {
	ShipName          string `json:"shipName" validate:"required,max=255" example:"MV Horizon"`
	Date              string `json:"date" validate:"required,datetime=2006-01-02" example:"2025-06-01"`
	IGType            string `json:"igType" validate:"max=255"`
	MTValue           string `json:"mtValue" validate:"max=255"`
	IGValue           string `json:"igValue" validate:"max=255"`
	RateUSD           string `json:"rateUsd" validate:"max=255"`
	DischargeTo       string `json:"dischargeTo" validate:"max=255"`
	InternalDischarge string `json:"internalDischarge" validate:"max=255"`
	IGToValue         string `json:"igToValue" validate:"max=255"`
	ShipTarget        string `json:"shipTarget" validate:"max=255"`
	USDPerMT          string `json:"usdPerMT" validate:"max=255"`
	Difference        string `json:"difference" validate:"max=255"`
	MoneySent         string `json:"moneySent" validate:"max=255"`
}

// ExpenseRequest carries the expense entry form fields
type ExpenseRequest struct {
	ShipName       string `json:"shipName" validate:"required,max=255" example:"MV Horizon"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02" example:"2025-06-01"`
	RemainingCash  string `json:"remainingCash" validate:"max=255"`
	ReceivedAmount string `json:"receivedAmount" validate:"max=255"`
	ReceivedFrom   string `json:"receivedFrom" validate:"max=255"`
	GivenTo        string `json:"givenTo" validate:"max=255"`
	ToShip         string `json:"toShip" validate:"max=255"`
	NewCash        string `json:"newCash" validate:"max=255"`
	CargoOnShip    string `json:"cargoOnShip" validate:"max=255"`
	FromOtherText  string `json:"fromOtherText" validate:"max=255"`
}

// ResultsQuery holds the parsed filter for the merged results view
type ResultsQuery struct {
	Ship     string `json:"ship" validate:"omitempty,max=255"`
	DateFrom string `json:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `json:"dateTo" validate:"omitempty,datetime=2006-01-02"`
}

// ResultEntry is one row of the merged results view. Field presence depends
// on the source collection; absent fields carry their documented defaults.
type ResultEntry struct {
	ID             string `json:"id" example:"loading_42"`
	Date           string `json:"date" example:"2025-06-01"`
	ShipName       string `json:"shipName" example:"MV Horizon"`
	BuyerOrOurShip string `json:"buyerOrOurShip"`
	IGType         string `json:"igType"`
	MT             string `json:"mt"`
	USDPrice       string `json:"usdPrice"`
	ValueAED       string `json:"valueAED"`
	Paid           string `json:"paid"`
	TotalPaid      string `json:"totalPaid" example:"-"`
	Remarks        string `json:"remarks"`
}

// DeleteMultipleRequest carries the batch of composite row ids to delete
type DeleteMultipleRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,max=64"`
}

// UndoMultipleRequest carries previously deleted rows to restore
type UndoMultipleRequest struct {
	Entries []ResultEntry `json:"entries" validate:"required,min=1"`
}

// DeleteMultipleResponse reports how many rows were removed
type DeleteMultipleResponse struct {
	Deleted int `json:"deleted" example:"3"`
}

// UndoMultipleResponse reports how many rows were restored
type UndoMultipleResponse struct {
	Restored int `json:"restored" example:"3"`
}

// ShipListResponse is the distinct ship name listing
type ShipListResponse struct {
	Ships []string `json:"ships"`
}
