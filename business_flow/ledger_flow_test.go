// Package businessflow contains the core business logic and use cases for the ship ledger workflows
package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/araw/ship-ledger/app/dto"
	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type ledgerFlowFixture struct {
	flow      LedgerFlow
	loading   *fakeTransactionRepo[models.LoadingTransaction]
	discharge *fakeTransactionRepo[models.DischargeTransaction]
	expense   *fakeTransactionRepo[models.ExpenseTransaction]
	audit     *fakeAuditRepo
}

func newLedgerFlowFixture(t *testing.T) *ledgerFlowFixture {
	t.Helper()

	loading := newFakeLoadingRepo()
	discharge := newFakeDischargeRepo()
	expense := newFakeExpenseRepo()
	audit := newFakeAuditRepo()

	flow := NewLedgerFlow(loading, discharge, expense, audit, nil, "test", 0, nil)
	return &ledgerFlowFixture{
		flow:      flow,
		loading:   loading,
		discharge: discharge,
		expense:   expense,
		audit:     audit,
	}
}

func recentDate(daysAgo int) string {
	return utils.UTCNow().AddDate(0, 0, -daysAgo).Format(utils.DateLayout)
}

func TestRecordLoading(t *testing.T) {
	f := newLedgerFlowFixture(t)

	err := f.flow.RecordLoading(context.Background(), &dto.LoadingRequest{
		ShipName:      "  Al Marwa  ",
		Date:          "2026-08-15",
		IGType:        "IG-1",
		MTValue:       "320",
		USDRate:       "3.67",
		TotalValueAED: "18350",
		CustomerMoney: "4500",
		TotalPaid:     "5000",
	}, testMetadata())
	require.NoError(t, err)
	require.Equal(t, 1, f.loading.count())

	stored, err := f.loading.ByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Al Marwa", stored.ShipName)
	assert.Equal(t, "2026-08-15", stored.Date)
	assert.Equal(t, "320", stored.MTValue)
}

func TestRecordEntry_Validation(t *testing.T) {
	f := newLedgerFlowFixture(t)

	tests := []struct {
		name     string
		shipName string
		date     string
		check    func(error) bool
	}{
		{name: "blank ship name", shipName: "   ", date: "2026-08-15", check: IsMissingFields},
		{name: "empty date", shipName: "Al Marwa", date: "", check: IsInvalidDate},
		{name: "wrong date format", shipName: "Al Marwa", date: "15/08/2026", check: IsInvalidDate},
		{name: "impossible date", shipName: "Al Marwa", date: "2026-13-45", check: IsInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.flow.RecordLoading(context.Background(), &dto.LoadingRequest{
				ShipName: tt.shipName,
				Date:     tt.date,
			}, testMetadata())
			assert.True(t, tt.check(err))

			err = f.flow.RecordDischarge(context.Background(), &dto.DischargeRequest{
				ShipName: tt.shipName,
				Date:     tt.date,
			}, testMetadata())
			assert.True(t, tt.check(err))

			err = f.flow.RecordExpense(context.Background(), &dto.ExpenseRequest{
				ShipName: tt.shipName,
				Date:     tt.date,
			}, testMetadata())
			assert.True(t, tt.check(err))
		})
	}

	assert.Equal(t, 0, f.loading.count())
	assert.Equal(t, 0, f.discharge.count())
	assert.Equal(t, 0, f.expense.count())
}

func TestQueryResults_MergesAndSortsNewestFirst(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Alpha", Date: recentDate(3)}, testMetadata()))
	require.NoError(t, f.flow.RecordDischarge(ctx, &dto.DischargeRequest{ShipName: "Beta", Date: recentDate(1)}, testMetadata()))
	require.NoError(t, f.flow.RecordExpense(ctx, &dto.ExpenseRequest{ShipName: "Gamma", Date: recentDate(2)}, testMetadata()))

	entries, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Beta", entries[0].ShipName)
	assert.Equal(t, "Gamma", entries[1].ShipName)
	assert.Equal(t, "Alpha", entries[2].ShipName)

	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Date, entries[i].Date)
	}
}

func TestQueryResults_DefaultWindow(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Recent", Date: recentDate(5)}, testMetadata()))
	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Ancient", Date: recentDate(45)}, testMetadata()))

	entries, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Recent", entries[0].ShipName)

	// An explicit range reaches past the default window
	entries, err = f.flow.QueryResults(ctx, &dto.ResultsQuery{DateFrom: recentDate(60), DateTo: recentDate(0)})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestQueryResults_ShipFilter(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Alpha", Date: recentDate(1)}, testMetadata()))
	require.NoError(t, f.flow.RecordExpense(ctx, &dto.ExpenseRequest{ShipName: "Beta", Date: recentDate(1)}, testMetadata()))

	entries, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{Ship: "Alpha"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alpha", entries[0].ShipName)
}

func TestQueryResults_LoadingProjection(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{
		ShipName:      "Alpha",
		Date:          recentDate(1),
		IGType:        "IG-1",
		MTValue:       "320",
		USDRate:       "3.67",
		TotalValueAED: "18350",
		CustomerMoney: "4500",
		TotalPaid:     "",
	}, testMetadata()))

	entries, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "loading_1", e.ID)
	assert.Equal(t, "", e.BuyerOrOurShip)
	assert.Equal(t, "IG-1", e.IGType)
	assert.Equal(t, "320", e.MT)
	assert.Equal(t, "3.67", e.USDPrice)
	assert.Equal(t, "18350", e.ValueAED)
	assert.Equal(t, "4500", e.Paid)
	assert.Equal(t, "-", e.TotalPaid) // blank total shows as a dash
	assert.Equal(t, "", e.Remarks)
}

func TestQueryResults_DischargeProjection(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordDischarge(ctx, &dto.DischargeRequest{
		ShipName:          "Beta",
		Date:              recentDate(1),
		IGType:            "IG-2",
		MTValue:           "210",
		RateUSD:           "3.65",
		ShipTarget:        "Vessel B",
		InternalDischarge: "internal note",
	}, testMetadata()))

	entries, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "discharge_1", e.ID)
	assert.Equal(t, "Vessel B", e.BuyerOrOurShip)
	assert.Equal(t, "IG-2", e.IGType)
	assert.Equal(t, "210", e.MT)
	assert.Equal(t, "3.65", e.USDPrice)
	assert.Equal(t, "", e.ValueAED)
	assert.Equal(t, "", e.Paid)
	assert.Equal(t, "-", e.TotalPaid)
	assert.Equal(t, "internal note", e.Remarks)
}

func TestQueryResults_ExpenseProjection(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordExpense(ctx, &dto.ExpenseRequest{
		ShipName:       "Gamma",
		Date:           recentDate(1),
		ToShip:         "Vessel C",
		NewCash:        "3500",
		ReceivedAmount: "2500",
	}, testMetadata()))

	entries, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "expense_1", e.ID)
	assert.Equal(t, "Vessel C", e.BuyerOrOurShip)
	assert.Equal(t, "", e.IGType)
	assert.Equal(t, "", e.MT)
	assert.Equal(t, "", e.USDPrice)
	assert.Equal(t, "3500", e.ValueAED)
	assert.Equal(t, "2500", e.Paid)
	assert.Equal(t, "-", e.TotalPaid)
}

func TestExportResults(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Alpha", Date: recentDate(1), MTValue: "320"}, testMetadata()))

	filename, content, err := f.flow.ExportResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	assert.Contains(t, filename, "ship-ledger-results-")
	assert.Contains(t, filename, ".xlsx")
	require.NotEmpty(t, content)

	xl, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer xl.Close()

	header, err := xl.GetCellValue("Results", "A1")
	require.NoError(t, err)
	assert.Equal(t, "id", header)

	ship, err := xl.GetCellValue("Results", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", ship)
}

func TestListShips(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Zulu", Date: recentDate(1)}, testMetadata()))
	require.NoError(t, f.flow.RecordDischarge(ctx, &dto.DischargeRequest{ShipName: "Alpha", Date: recentDate(1)}, testMetadata()))
	require.NoError(t, f.flow.RecordExpense(ctx, &dto.ExpenseRequest{ShipName: "Alpha", Date: recentDate(1)}, testMetadata()))

	resp, err := f.flow.ListShips(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zulu"}, resp.Ships)
}

func TestDeleteResults(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Alpha", Date: recentDate(1)}, testMetadata()))
	require.NoError(t, f.flow.RecordDischarge(ctx, &dto.DischargeRequest{ShipName: "Beta", Date: recentDate(1)}, testMetadata()))

	resp, err := f.flow.DeleteResults(ctx, &dto.DeleteMultipleRequest{
		IDs: []string{"loading_1", "discharge_1"},
	}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Deleted)
	assert.Equal(t, 0, f.loading.count())
	assert.Equal(t, 0, f.discharge.count())
	assert.Contains(t, f.audit.actions(), models.AuditActionResultsDeleted)
}

func TestDeleteResults_SkipsMalformedIDs(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{ShipName: "Alpha", Date: recentDate(1)}, testMetadata()))

	resp, err := f.flow.DeleteResults(ctx, &dto.DeleteMultipleRequest{
		IDs: []string{"garbage", "loading_abc", "unknown_7", "loading_999", "loading_1", "_", ""},
	}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Deleted)
	assert.Equal(t, 0, f.loading.count())
}

func TestDeleteResults_EmptyBatch(t *testing.T) {
	f := newLedgerFlowFixture(t)

	resp, err := f.flow.DeleteResults(context.Background(), &dto.DeleteMultipleRequest{}, testMetadata())
	assert.Nil(t, resp)
	assert.True(t, IsEmptyBatch(err))
}

func TestUndoDelete_RoundTrip(t *testing.T) {
	f := newLedgerFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.RecordLoading(ctx, &dto.LoadingRequest{
		ShipName:      "Alpha",
		Date:          recentDate(1),
		IGType:        "IG-1",
		MTValue:       "320",
		USDRate:       "3.67",
		TotalValueAED: "18350",
		CustomerMoney: "4500",
	}, testMetadata()))
	require.NoError(t, f.flow.RecordDischarge(ctx, &dto.DischargeRequest{
		ShipName:          "Beta",
		Date:              recentDate(2),
		IGType:            "IG-2",
		MTValue:           "210",
		RateUSD:           "3.65",
		ShipTarget:        "Vessel B",
		InternalDischarge: "note",
	}, testMetadata()))
	require.NoError(t, f.flow.RecordExpense(ctx, &dto.ExpenseRequest{
		ShipName:       "Gamma",
		Date:           recentDate(3),
		ToShip:         "Vessel C",
		NewCash:        "3500",
		ReceivedAmount: "2500",
	}, testMetadata()))

	before, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, before, 3)

	ids := make([]string, 0, len(before))
	for _, e := range before {
		ids = append(ids, e.ID)
	}

	deleted, err := f.flow.DeleteResults(ctx, &dto.DeleteMultipleRequest{IDs: ids}, testMetadata())
	require.NoError(t, err)
	require.Equal(t, 3, deleted.Deleted)

	restored, err := f.flow.UndoDelete(ctx, &dto.UndoMultipleRequest{Entries: before}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Restored)

	after, err := f.flow.QueryResults(ctx, &dto.ResultsQuery{})
	require.NoError(t, err)
	require.Len(t, after, 3)

	// Rows come back with fresh ids but identical projected fields
	for i := range before {
		want := before[i]
		got := after[i]
		assert.Equal(t, want.Date, got.Date)
		assert.Equal(t, want.ShipName, got.ShipName)
		assert.Equal(t, want.BuyerOrOurShip, got.BuyerOrOurShip)
		assert.Equal(t, want.IGType, got.IGType)
		assert.Equal(t, want.MT, got.MT)
		assert.Equal(t, want.USDPrice, got.USDPrice)
		assert.Equal(t, want.ValueAED, got.ValueAED)
		assert.Equal(t, want.Paid, got.Paid)
		assert.Equal(t, want.TotalPaid, got.TotalPaid)
		assert.Equal(t, want.Remarks, got.Remarks)
	}

	assert.Contains(t, f.audit.actions(), models.AuditActionResultsRestored)
}

func TestUndoDelete_SkipsUnknownKinds(t *testing.T) {
	f := newLedgerFlowFixture(t)

	resp, err := f.flow.UndoDelete(context.Background(), &dto.UndoMultipleRequest{
		Entries: []dto.ResultEntry{
			{ID: "mystery_1", ShipName: "Ghost", Date: recentDate(1)},
			{ID: "loading_99", ShipName: "Alpha", Date: recentDate(1)},
		},
	}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Restored)
	assert.Equal(t, 1, f.loading.count())
}

func TestUndoDelete_EmptyBatch(t *testing.T) {
	f := newLedgerFlowFixture(t)

	resp, err := f.flow.UndoDelete(context.Background(), &dto.UndoMultipleRequest{}, testMetadata())
	assert.Nil(t, resp)
	assert.True(t, IsEmptyBatch(err))
}

func TestSplitResultID(t *testing.T) {
	tests := []struct {
		input    string
		wantKind string
		wantID   uint
		wantOK   bool
	}{
		{input: "loading_42", wantKind: "loading", wantID: 42, wantOK: true},
		{input: "discharge_1", wantKind: "discharge", wantID: 1, wantOK: true},
		{input: "expense_7", wantKind: "expense", wantID: 7, wantOK: true},
		{input: "loading_", wantOK: false},
		{input: "_42", wantOK: false},
		{input: "loading_abc", wantOK: false},
		{input: "noseparator", wantOK: false},
		{input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("id %q", tt.input), func(t *testing.T) {
			kind, id, ok := splitResultID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, kind)
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}
