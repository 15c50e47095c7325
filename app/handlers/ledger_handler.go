package handlers

import (
	"context"
	"log"
	"time"

	"github.com/araw/ship-ledger/app/dto"
	businessflow "github.com/araw/ship-ledger/business_flow"
	"github.com/araw/ship-ledger/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LedgerHandlerInterface defines the contract for ledger handlers
type LedgerHandlerInterface interface {
	RecordLoading(c fiber.Ctx) error
	RecordDischarge(c fiber.Ctx) error
	RecordExpense(c fiber.Ctx) error
	Results(c fiber.Ctx) error
	ExportResults(c fiber.Ctx) error
	Ships(c fiber.Ctx) error
	DeleteMultiple(c fiber.Ctx) error
	UndoMultiple(c fiber.Ctx) error
}

// LedgerHandler handles transaction entry and results HTTP requests
type LedgerHandler struct {
	ledgerFlow businessflow.LedgerFlow
	validator  *validator.Validate
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerFlow businessflow.LedgerFlow) *LedgerHandler {
	return &LedgerHandler{
		ledgerFlow: ledgerFlow,
		validator:  validator.New(),
	}
}

func (h *LedgerHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LedgerHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RecordLoading saves a loading entry
func (h *LedgerHandler) RecordLoading(c fiber.Ctx) error {
	var req dto.LoadingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationError(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.ledgerFlow.RecordLoading(h.createRequestContext(c, "/api/loading"), &req, metadata); err != nil {
		if businessflow.IsMissingFields(err) || businessflow.IsInvalidDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid entry", "INVALID_ENTRY", err.Error())
		}

		log.Println("Loading entry failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save loading data", "RECORD_LOADING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Loading data saved successfully", nil)
}

// RecordDischarge saves a discharge entry
func (h *LedgerHandler) RecordDischarge(c fiber.Ctx) error {
	var req dto.DischargeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationError(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.ledgerFlow.RecordDischarge(h.createRequestContext(c, "/api/discharge"), &req, metadata); err != nil {
		if businessflow.IsMissingFields(err) || businessflow.IsInvalidDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid entry", "INVALID_ENTRY", err.Error())
		}

		log.Println("Discharge entry failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save discharge data", "RECORD_DISCHARGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Discharge data saved successfully", nil)
}

// RecordExpense saves an expense entry
func (h *LedgerHandler) RecordExpense(c fiber.Ctx) error {
	var req dto.ExpenseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationError(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.ledgerFlow.RecordExpense(h.createRequestContext(c, "/api/expense"), &req, metadata); err != nil {
		if businessflow.IsMissingFields(err) || businessflow.IsInvalidDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid entry", "INVALID_ENTRY", err.Error())
		}

		log.Println("Expense entry failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save expense data", "RECORD_EXPENSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Expense data saved successfully", nil)
}

// Results returns the merged results view. Query parameters: ship (exact
// match), start and end (inclusive YYYY-MM-DD bounds).
func (h *LedgerHandler) Results(c fiber.Ctx) error {
	query, err := h.parseResultsQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_QUERY", err.Error())
	}

	entries, err := h.ledgerFlow.QueryResults(h.createRequestContext(c, "/api/results"), query)
	if err != nil {
		log.Println("Results query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch results", "QUERY_RESULTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Results fetched", entries)
}

// ExportResults streams the current results view as an xlsx download
func (h *LedgerHandler) ExportResults(c fiber.Ctx) error {
	query, err := h.parseResultsQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_QUERY", err.Error())
	}

	filename, content, err := h.ledgerFlow.ExportResults(h.createRequestContextWithTimeout(c, "/api/results/export", 2*time.Minute), query)
	if err != nil {
		log.Println("Results export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export results", "EXPORT_RESULTS_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(content)
}

// Ships returns the distinct ship names seen across all collections
func (h *LedgerHandler) Ships(c fiber.Ctx) error {
	result, err := h.ledgerFlow.ListShips(h.createRequestContext(c, "/api/ships"))
	if err != nil {
		log.Println("Ship list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch ship names", "LIST_SHIPS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ships fetched", result)
}

// DeleteMultiple removes a batch of result rows by composite id
func (h *LedgerHandler) DeleteMultiple(c fiber.Ctx) error {
	var req dto.DeleteMultipleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		if isEmptyBatchFailure(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No ids provided", "EMPTY_BATCH", nil)
		}
		return h.validationError(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.ledgerFlow.DeleteResults(h.createRequestContext(c, "/api/delete-multiple-results"), &req, metadata)
	if err != nil {
		if businessflow.IsEmptyBatch(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No ids provided", "EMPTY_BATCH", nil)
		}

		log.Println("Batch delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Delete failed", "DELETE_RESULTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deleted successfully", result)
}

// UndoMultiple restores a batch of previously deleted rows
func (h *LedgerHandler) UndoMultiple(c fiber.Ctx) error {
	var req dto.UndoMultipleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		if isEmptyBatchFailure(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No entries provided", "EMPTY_BATCH", nil)
		}
		return h.validationError(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.ledgerFlow.UndoDelete(h.createRequestContext(c, "/api/undo-multiple-delete"), &req, metadata)
	if err != nil {
		if businessflow.IsEmptyBatch(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No entries provided", "EMPTY_BATCH", nil)
		}

		log.Println("Undo failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Undo failed", "UNDO_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Undo successful", result)
}

func (h *LedgerHandler) parseResultsQuery(c fiber.Ctx) (*dto.ResultsQuery, error) {
	query := &dto.ResultsQuery{
		Ship:     c.Query("ship"),
		DateFrom: c.Query("start"),
		DateTo:   c.Query("end"),
	}

	if err := h.validator.Struct(query); err != nil {
		return nil, err
	}

	return query, nil
}

// isEmptyBatchFailure reports whether every validation failure is a missing
// or empty batch field. A malformed element, such as an oversized id, is a
// plain validation error instead.
func isEmptyBatchFailure(err error) bool {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, fieldError := range validationErrors {
		if fieldError.Tag() != "required" && fieldError.Tag() != "min" {
			return false
		}
	}
	return true
}

func (h *LedgerHandler) validationError(c fiber.Ctx, err error) error {
	var validationErrors []string
	for _, err := range err.(validator.ValidationErrors) {
		validationErrors = append(validationErrors, getValidationErrorMessage(err))
	}
	return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
}

func (h *LedgerHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *LedgerHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
