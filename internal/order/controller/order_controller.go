package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/order/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxQuantity = 10000
	maxAddons   = 50
)

type OrderMutationUseCase interface {
	AddItem(ctx context.Context, orderID uint, req dto.AddItemRequest) (*usecase.MutationResult, error)
	ChangeQuantity(ctx context.Context, orderID uint, lineID uint, quantity int) (*usecase.MutationResult, error)
	RemoveItem(ctx context.Context, orderID uint, lineID uint) (*usecase.MutationResult, error)
	FlushTicket(ctx context.Context, orderID uint, printerRef string) (*usecase.FlushResult, error)
	PendingChanges(ctx context.Context, orderID uint) (*usecase.ChangesView, error)
}

type OrderController struct {
	useCase OrderMutationUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderMutationUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *OrderController) AddItem(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseID(w, r, traceID, "orderId")
	if !ok {
		return
	}

	var req dto.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateAddItemRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	result, err := c.useCase.AddItem(r.Context(), orderID, req)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	c.writeMutationResponse(w, http.StatusCreated, traceID, orderID, result)
}

func (c *OrderController) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseID(w, r, traceID, "orderId")
	if !ok {
		return
	}
	lineID, ok := c.parseID(w, r, traceID, "lineId")
	if !ok {
		return
	}

	var req dto.ChangeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if req.Quantity < 1 || req.Quantity > maxQuantity {
		c.writeValidationError(w, traceID, "invalid quantity", apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must be between 1 and " + strconv.Itoa(maxQuantity),
		})
		return
	}

	result, err := c.useCase.ChangeQuantity(r.Context(), orderID, lineID, req.Quantity)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	c.writeMutationResponse(w, http.StatusOK, traceID, orderID, result)
}

func (c *OrderController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseID(w, r, traceID, "orderId")
	if !ok {
		return
	}
	lineID, ok := c.parseID(w, r, traceID, "lineId")
	if !ok {
		return
	}

	result, err := c.useCase.RemoveItem(r.Context(), orderID, lineID)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	c.writeMutationResponse(w, http.StatusOK, traceID, orderID, result)
}

func (c *OrderController) FlushTicket(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseID(w, r, traceID, "orderId")
	if !ok {
		return
	}

	// the body is optional, an empty flush request uses the venue's printer
	var req dto.FlushTicketRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid JSON body", zap.Error(err))
			c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
				Field:   "body",
				Message: "request body must be valid JSON",
			})
			return
		}
	}

	result, err := c.useCase.FlushTicket(r.Context(), orderID, req.PrinterRef)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	response := dto.FlushTicketResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		FlushID:   result.FlushID,
		Printed:   result.Printed,
		Lines:     result.Lines,
		Timestamp: time.Now().UTC(),
	}
	c.writeJSON(w, http.StatusOK, response)
}

func (c *OrderController) GetChanges(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseID(w, r, traceID, "orderId")
	if !ok {
		return
	}

	view, err := c.useCase.PendingChanges(r.Context(), orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	changes := make([]dto.ChangeRecordDTO, len(view.Records))
	for i, rec := range view.Records {
		changes[i] = dto.ChangeRecordDTO{
			ItemID:           rec.ItemID,
			Name:             rec.Name,
			MenuItemID:       rec.MenuItemID,
			ChangeType:       string(rec.ChangeType),
			BaselineQuantity: rec.BaselineQuantity,
			NetChange:        rec.NetChange,
			LastUpdatedAt:    rec.LastUpdatedAt,
		}
	}

	counts := make(map[string]int, len(view.Counts))
	for changeType, n := range view.Counts {
		counts[string(changeType)] = n
	}

	response := dto.ChangesSummaryResponse{
		TraceID:     traceID,
		OrderID:     orderID,
		HasChanges:  view.HasChanges,
		Processing:  view.Processing,
		QueueLength: view.QueueLength,
		Counts:      counts,
		Changes:     changes,
	}
	c.writeJSON(w, http.StatusOK, response)
}

func validateAddItemRequest(req dto.AddItemRequest) error {
	var details []apperrors.ValidationDetail

	if req.MenuItemID <= 0 {
		msg := "menuItemId must be a positive integer"
		if req.MenuItemID == 0 {
			msg = "menuItemId is required"
		}
		details = append(details, apperrors.ValidationDetail{
			Field:   "menuItemId",
			Message: msg,
		})
	}

	if req.Quantity < 1 || req.Quantity > maxQuantity {
		details = append(details, apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must be between 1 and " + strconv.Itoa(maxQuantity),
		})
	}

	if len(req.Addons) > maxAddons {
		details = append(details, apperrors.ValidationDetail{
			Field:   "addons",
			Message: "addons exceeds maximum of " + strconv.Itoa(maxAddons),
		})
	}

	for idx, sel := range req.Addons {
		if sel.AddonID <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   "addons[" + strconv.Itoa(idx) + "].addonId",
				Message: "each addonId must be a positive integer",
			})
		}

		if sel.AddonType == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "addons[" + strconv.Itoa(idx) + "].addonType",
				Message: "addonType is required",
			})
		}

		if sel.Quantity < 1 {
			details = append(details, apperrors.ValidationDetail{
				Field:   "addons[" + strconv.Itoa(idx) + "].quantity",
				Message: "quantity must be a positive integer",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

func (c *OrderController) parseID(w http.ResponseWriter, r *http.Request, traceID string, param string) (uint, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.writeValidationError(w, traceID, "invalid "+param, apperrors.ValidationDetail{
			Field:   param,
			Message: param + " must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

func (c *OrderController) handleUseCaseError(w http.ResponseWriter, traceID string, orderID uint, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	if _, ok := apperrors.IsUnavailableError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Uint("orderId", orderID), zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *OrderController) writeMutationResponse(w http.ResponseWriter, status int, traceID string, orderID uint, result *usecase.MutationResult) {
	response := dto.MutationResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		LineID:    result.LineID,
		Merged:    result.Merged,
		Quantity:  result.Quantity,
		Timestamp: time.Now().UTC(),
	}
	if result.ScaleWarning {
		response.ScaleWarning = "addon quantities could not be rescaled and may be stale"
	}

	if result.Merged {
		status = http.StatusOK
	}
	c.writeJSON(w, status, response)
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string) {
	response := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	c.writeJSON(w, statusCode, response)
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	response := validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	}

	c.writeJSON(w, http.StatusBadRequest, response)
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
