package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araw/ship-ledger/app/dto"
	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/repository"
	"github.com/araw/ship-ledger/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// LedgerFlow provides use cases for the three transaction collections and
// the merged results view built on top of them.
type LedgerFlow interface {
	RecordLoading(ctx context.Context, request *dto.LoadingRequest, metadata *ClientMetadata) error
	RecordDischarge(ctx context.Context, request *dto.DischargeRequest, metadata *ClientMetadata) error
	RecordExpense(ctx context.Context, request *dto.ExpenseRequest, metadata *ClientMetadata) error
	QueryResults(ctx context.Context, query *dto.ResultsQuery) ([]dto.ResultEntry, error)
	ExportResults(ctx context.Context, query *dto.ResultsQuery) (string, []byte, error)
	ListShips(ctx context.Context) (*dto.ShipListResponse, error)
	DeleteResults(ctx context.Context, request *dto.DeleteMultipleRequest, metadata *ClientMetadata) (*dto.DeleteMultipleResponse, error)
	UndoDelete(ctx context.Context, request *dto.UndoMultipleRequest, metadata *ClientMetadata) (*dto.UndoMultipleResponse, error)
}

// LedgerFlowImpl implements the ledger business flow
type LedgerFlowImpl struct {
	loadingRepo   repository.LoadingRepository
	dischargeRepo repository.DischargeRepository
	expenseRepo   repository.ExpenseRepository
	auditRepo     repository.AuditLogRepository
	rc            *redis.Client
	cachePrefix   string
	cacheTTL      time.Duration
	db            *gorm.DB
}

// NewLedgerFlow creates a new ledger flow instance. rc may be nil, in which
// case the ship list is served straight from the database.
func NewLedgerFlow(
	loadingRepo repository.LoadingRepository,
	dischargeRepo repository.DischargeRepository,
	expenseRepo repository.ExpenseRepository,
	auditRepo repository.AuditLogRepository,
	rc *redis.Client,
	cachePrefix string,
	cacheTTL time.Duration,
	db *gorm.DB,
) LedgerFlow {
	return &LedgerFlowImpl{
		loadingRepo:   loadingRepo,
		dischargeRepo: dischargeRepo,
		expenseRepo:   expenseRepo,
		auditRepo:     auditRepo,
		rc:            rc,
		cachePrefix:   cachePrefix,
		cacheTTL:      cacheTTL,
		db:            db,
	}
}

// RecordLoading stores a loading entry
func (lf *LedgerFlowImpl) RecordLoading(ctx context.Context, request *dto.LoadingRequest, metadata *ClientMetadata) error {
	if err := validateEntryBase(request.ShipName, request.Date); err != nil {
		return NewBusinessError("RECORD_LOADING_FAILED", "Failed to save loading entry", err)
	}

	entry := &models.LoadingTransaction{
		ShipName:      strings.TrimSpace(request.ShipName),
		Date:          request.Date,
		IGType:        request.IGType,
		IGValue:       request.IGValue,
		AEDPrice:      request.AEDPrice,
		TotalPaid:     request.TotalPaid,
		CustomerMoney: request.CustomerMoney,
		MTType:        request.MTType,
		MTValue:       request.MTValue,
		USDRate:       request.USDRate,
		TotalValueAED: request.TotalValueAED,
		CreatedAt:     utils.UTCNow(),
	}

	if err := lf.loadingRepo.Save(ctx, entry); err != nil {
		return NewBusinessError("RECORD_LOADING_FAILED", "Failed to save loading entry", err)
	}

	lf.invalidateShipCache(ctx)
	return nil
}

// RecordDischarge stores a discharge entry
func (lf *LedgerFlowImpl) RecordDischarge(ctx context.Context, request *dto.DischargeRequest, metadata *ClientMetadata) error {
	if err := validateEntryBase(request.ShipName, request.Date); err != nil {
		return NewBusinessError("RECORD_DISCHARGE_FAILED", "Failed to save discharge entry", err)
	}

	entry := &models.DischargeTransaction{
		ShipName:          strings.TrimSpace(request.ShipName),
		Date:              request.Date,
		IGType:            request.IGType,
		MTValue:           request.MTValue,
		IGValue:           request.IGValue,
		RateUSD:           request.RateUSD,
		DischargeTo:       request.DischargeTo,
		InternalDischarge: request.InternalDischarge,
		IGToValue:         request.IGToValue,
		ShipTarget:        request.ShipTarget,
		USDPerMT:          request.USDPerMT,
		Difference:        request.Difference,
		MoneySent:         request.MoneySent,
		CreatedAt:         utils.UTCNow(),
	}

	if err := lf.dischargeRepo.Save(ctx, entry); err != nil {
		return NewBusinessError("RECORD_DISCHARGE_FAILED", "Failed to save discharge entry", err)
	}

	lf.invalidateShipCache(ctx)
	return nil
}

// RecordExpense stores an expense entry
func (lf *LedgerFlowImpl) RecordExpense(ctx context.Context, request *dto.ExpenseRequest, metadata *ClientMetadata) error {
	if err := validateEntryBase(request.ShipName, request.Date); err != nil {
		return NewBusinessError("RECORD_EXPENSE_FAILED", "Failed to save expense entry", err)
	}

	entry := &models.ExpenseTransaction{
		ShipName:       strings.TrimSpace(request.ShipName),
		Date:           request.Date,
		RemainingCash:  request.RemainingCash,
		ReceivedAmount: request.ReceivedAmount,
		ReceivedFrom:   request.ReceivedFrom,
		GivenTo:        request.GivenTo,
		ToShip:         request.ToShip,
		NewCash:        request.NewCash,
		CargoOnShip:    request.CargoOnShip,
		FromOtherText:  request.FromOtherText,
		CreatedAt:      utils.UTCNow(),
	}

	if err := lf.expenseRepo.Save(ctx, entry); err != nil {
		return NewBusinessError("RECORD_EXPENSE_FAILED", "Failed to save expense entry", err)
	}

	lf.invalidateShipCache(ctx)
	return nil
}

// QueryResults merges the three collections through a common projection and
// sorts by date, newest first. With no explicit date bounds the view covers
// the last 30 days.
func (lf *LedgerFlowImpl) QueryResults(ctx context.Context, query *dto.ResultsQuery) ([]dto.ResultEntry, error) {
	filter := buildTransactionFilter(query)

	loading, err := lf.loadingRepo.ByFilter(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("QUERY_RESULTS_FAILED", "Failed to fetch results", err)
	}
	discharge, err := lf.dischargeRepo.ByFilter(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("QUERY_RESULTS_FAILED", "Failed to fetch results", err)
	}
	expense, err := lf.expenseRepo.ByFilter(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("QUERY_RESULTS_FAILED", "Failed to fetch results", err)
	}

	merged := make([]dto.ResultEntry, 0, len(loading)+len(discharge)+len(expense))
	for _, e := range loading {
		merged = append(merged, projectLoading(e))
	}
	for _, e := range discharge {
		merged = append(merged, projectDischarge(e))
	}
	for _, e := range expense {
		merged = append(merged, projectExpense(e))
	}

	// Dates are YYYY-MM-DD strings, so lexicographic order is date order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date > merged[j].Date
	})

	return merged, nil
}

// ExportResults renders the current results view as an xlsx workbook
func (lf *LedgerFlowImpl) ExportResults(ctx context.Context, query *dto.ResultsQuery) (string, []byte, error) {
	entries, err := lf.QueryResults(ctx, query)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Results"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "date", "ship_name", "buyer_or_our_ship", "ig_type", "mt", "usd_price", "value_aed", "paid", "total_paid", "remarks"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, e := range entries {
		record := []any{
			e.ID,
			e.Date,
			e.ShipName,
			e.BuyerOrOurShip,
			e.IGType,
			e.MT,
			e.USDPrice,
			e.ValueAED,
			e.Paid,
			e.TotalPaid,
			e.Remarks,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", ErrExportFailed)
	}

	filename := fmt.Sprintf("ship-ledger-results-%s.xlsx", utils.UTCNow().Format(utils.DateLayout))
	return filename, buf.Bytes(), nil
}

// ListShips returns the distinct ship names across all three collections,
// sorted ascending. The list is served from cache when one is configured.
func (lf *LedgerFlowImpl) ListShips(ctx context.Context) (*dto.ShipListResponse, error) {
	cacheKey := lf.shipCacheKey()

	if lf.rc != nil {
		if bs, err := lf.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var ships []string
			if err := json.Unmarshal(bs, &ships); err == nil {
				return &dto.ShipListResponse{Ships: ships}, nil
			}
		}
	}

	seen := make(map[string]struct{})
	for _, repo := range []interface {
		DistinctShipNames(ctx context.Context) ([]string, error)
	}{lf.loadingRepo, lf.dischargeRepo, lf.expenseRepo} {
		names, err := repo.DistinctShipNames(ctx)
		if err != nil {
			return nil, NewBusinessError("LIST_SHIPS_FAILED", "Failed to fetch ship names", err)
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}

	ships := make([]string, 0, len(seen))
	for name := range seen {
		ships = append(ships, name)
	}
	sort.Strings(ships)

	if lf.rc != nil {
		if bs, err := json.Marshal(ships); err == nil {
			_ = lf.rc.Set(ctx, cacheKey, bs, lf.cacheTTL).Err()
		}
	}

	return &dto.ShipListResponse{Ships: ships}, nil
}

// DeleteResults removes the rows named by composite ids. Malformed ids are
// skipped, not rejected, so one bad id never blocks the rest of the batch.
func (lf *LedgerFlowImpl) DeleteResults(ctx context.Context, request *dto.DeleteMultipleRequest, metadata *ClientMetadata) (*dto.DeleteMultipleResponse, error) {
	if len(request.IDs) == 0 {
		return nil, NewBusinessError("DELETE_RESULTS_FAILED", "No ids provided", ErrEmptyBatch)
	}

	deleted, err := runInTransaction(ctx, lf.db, func(ctx context.Context) (int, error) {
		count := 0
		for _, fullID := range request.IDs {
			kind, storeID, ok := splitResultID(fullID)
			if !ok {
				continue
			}

			var (
				removed bool
				err     error
			)
			switch kind {
			case models.KindLoading:
				removed, err = lf.loadingRepo.DeleteByID(ctx, storeID)
			case models.KindDischarge:
				removed, err = lf.dischargeRepo.DeleteByID(ctx, storeID)
			case models.KindExpense:
				removed, err = lf.expenseRepo.DeleteByID(ctx, storeID)
			default:
				continue
			}
			if err != nil {
				return 0, err
			}
			if removed {
				count++
			}
		}
		return count, nil
	})
	if err != nil {
		return nil, NewBusinessError("DELETE_RESULTS_FAILED", "Delete failed", err)
	}

	msg := fmt.Sprintf("Deleted %d of %d result rows", deleted, len(request.IDs))
	_ = lf.logLedgerEvent(ctx, models.AuditActionResultsDeleted, msg, metadata)
	lf.invalidateShipCache(ctx)

	return &dto.DeleteMultipleResponse{Deleted: deleted}, nil
}

// UndoDelete re-inserts previously deleted rows. Each entry's collection is
// taken from its id prefix; the row gets a fresh identifier on insert.
func (lf *LedgerFlowImpl) UndoDelete(ctx context.Context, request *dto.UndoMultipleRequest, metadata *ClientMetadata) (*dto.UndoMultipleResponse, error) {
	if len(request.Entries) == 0 {
		return nil, NewBusinessError("UNDO_DELETE_FAILED", "No entries provided", ErrEmptyBatch)
	}

	restored, err := runInTransaction(ctx, lf.db, func(ctx context.Context) (int, error) {
		count := 0
		for _, entry := range request.Entries {
			// The collection is named by the id prefix; the numeric half is
			// stale after deletion and ignored on re-insert.
			kind, _, _ := strings.Cut(entry.ID, "_")

			var err error
			switch kind {
			case models.KindLoading:
				err = lf.loadingRepo.Save(ctx, restoreLoading(entry))
			case models.KindDischarge:
				err = lf.dischargeRepo.Save(ctx, restoreDischarge(entry))
			case models.KindExpense:
				err = lf.expenseRepo.Save(ctx, restoreExpense(entry))
			default:
				continue
			}
			if err != nil {
				return 0, err
			}
			count++
		}
		return count, nil
	})
	if err != nil {
		return nil, NewBusinessError("UNDO_DELETE_FAILED", "Undo failed", err)
	}

	msg := fmt.Sprintf("Restored %d of %d result rows", restored, len(request.Entries))
	_ = lf.logLedgerEvent(ctx, models.AuditActionResultsRestored, msg, metadata)
	lf.invalidateShipCache(ctx)

	return &dto.UndoMultipleResponse{Restored: restored}, nil
}

// Projection helpers. Each collection exposes its own columns through the
// shared results shape; absent columns carry their documented defaults.

func projectLoading(e *models.LoadingTransaction) dto.ResultEntry {
	return dto.ResultEntry{
		ID:             fmt.Sprintf("%s_%d", models.KindLoading, e.ID),
		Date:           e.Date,
		ShipName:       e.ShipName,
		BuyerOrOurShip: "",
		IGType:         e.IGType,
		MT:             e.MTValue,
		USDPrice:       e.USDRate,
		ValueAED:       e.TotalValueAED,
		Paid:           e.CustomerMoney,
		TotalPaid:      orDash(e.TotalPaid),
		Remarks:        "",
	}
}

func projectDischarge(e *models.DischargeTransaction) dto.ResultEntry {
	return dto.ResultEntry{
		ID:             fmt.Sprintf("%s_%d", models.KindDischarge, e.ID),
		Date:           e.Date,
		ShipName:       e.ShipName,
		BuyerOrOurShip: e.ShipTarget,
		IGType:         e.IGType,
		MT:             e.MTValue,
		USDPrice:       e.RateUSD,
		ValueAED:       "",
		Paid:           "",
		TotalPaid:      "-",
		Remarks:        e.InternalDischarge,
	}
}

func projectExpense(e *models.ExpenseTransaction) dto.ResultEntry {
	return dto.ResultEntry{
		ID:             fmt.Sprintf("%s_%d", models.KindExpense, e.ID),
		Date:           e.Date,
		ShipName:       e.ShipName,
		BuyerOrOurShip: e.ToShip,
		IGType:         "",
		MT:             "",
		USDPrice:       "",
		ValueAED:       e.NewCash,
		Paid:           e.ReceivedAmount,
		TotalPaid:      "-",
		Remarks:        "",
	}
}

// Restore helpers map the projection back onto the collection it came from.

func restoreLoading(e dto.ResultEntry) *models.LoadingTransaction {
	return &models.LoadingTransaction{
		ShipName:      e.ShipName,
		Date:          e.Date,
		IGType:        e.IGType,
		MTValue:       e.MT,
		USDRate:       e.USDPrice,
		TotalValueAED: e.ValueAED,
		CustomerMoney: e.Paid,
		TotalPaid:     dashToEmpty(e.TotalPaid),
		CreatedAt:     utils.UTCNow(),
	}
}

func restoreDischarge(e dto.ResultEntry) *models.DischargeTransaction {
	return &models.DischargeTransaction{
		ShipName:          e.ShipName,
		Date:              e.Date,
		IGType:            e.IGType,
		MTValue:           e.MT,
		RateUSD:           e.USDPrice,
		ShipTarget:        e.BuyerOrOurShip,
		InternalDischarge: e.Remarks,
		CreatedAt:         utils.UTCNow(),
	}
}

func restoreExpense(e dto.ResultEntry) *models.ExpenseTransaction {
	return &models.ExpenseTransaction{
		ShipName:       e.ShipName,
		Date:           e.Date,
		ToShip:         e.BuyerOrOurShip,
		NewCash:        e.ValueAED,
		ReceivedAmount: e.Paid,
		CreatedAt:      utils.UTCNow(),
	}
}

func validateEntryBase(shipName, date string) error {
	if strings.TrimSpace(shipName) == "" {
		return ErrMissingFields
	}
	if _, err := time.Parse(utils.DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func buildTransactionFilter(query *dto.ResultsQuery) models.TransactionFilter {
	filter := models.TransactionFilter{}
	if query != nil {
		if query.Ship != "" {
			filter.ShipName = utils.ToPtr(query.Ship)
		}
		if query.DateFrom != "" {
			filter.DateFrom = utils.ToPtr(query.DateFrom)
		}
		if query.DateTo != "" {
			filter.DateTo = utils.ToPtr(query.DateTo)
		}
	}

	if filter.DateFrom == nil && filter.DateTo == nil {
		from := utils.UTCNow().AddDate(0, 0, -utils.DefaultResultsWindowDays).Format(utils.DateLayout)
		filter.DateFrom = &from
	}

	return filter
}

// splitResultID parses a "<kind>_<id>" composite. Both halves must be
// present and the id numeric.
func splitResultID(fullID string) (string, uint, bool) {
	kind, rest, found := strings.Cut(fullID, "_")
	if !found || kind == "" || rest == "" {
		return "", 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return kind, uint(id), true
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func (lf *LedgerFlowImpl) shipCacheKey() string {
	return lf.cachePrefix + ":ships"
}

func (lf *LedgerFlowImpl) invalidateShipCache(ctx context.Context) {
	if lf.rc == nil {
		return
	}
	_ = lf.rc.Del(ctx, lf.shipCacheKey()).Err()
}

func (lf *LedgerFlowImpl) logLedgerEvent(ctx context.Context, action string, description string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CorrelationID: uuid.New(),
		Action:        action,
		Description:   &description,
		Success:       utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return lf.auditRepo.Save(ctx, audit)
}
