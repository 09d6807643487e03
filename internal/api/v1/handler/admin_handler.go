package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/apperr"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminHandler exposes refund operations behind the admin bearer secret.
type AdminHandler struct {
	refundSvc service.RefundService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(refundSvc service.RefundService, validate *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{refundSvc: refundSvc, validate: validate, logger: logger}
}

// RegisterRoutes registers the admin endpoints behind adminMiddleware.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, adminMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /admin/refunds/check", adminMiddleware(http.HandlerFunc(h.CheckRefund)))
	mux.Handle("POST /admin/refunds", adminMiddleware(http.HandlerFunc(h.CreateRefund)))
}

// CheckRefund godoc
// @Summary Reconcile a payment's refund state into the entitlement store
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.RefundCheckRequest true "Payment intent reference"
// @Success 200 {object} dto.RefundCheckResponse
// @Failure 400 {object} map[string]string "missing payment intent id"
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 404 {object} map[string]string "payment intent not found"
// @Router /admin/refunds/check [post]
func (h *AdminHandler) CheckRefund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "paymentIntentId is required"))
		return
	}

	result, err := h.refundSvc.SyncRefundStatus(r.Context(), req.PaymentIntentID)
	if err != nil {
		h.logger.Error().Err(err).Str("payment_intent_id", req.PaymentIntentID).Msg("refund check failed")
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.RefundCheckResponse{
		WasRefunded:   result.WasRefunded,
		Updated:       result.Updated,
		PurchaseCount: result.PurchaseCount,
		RefundAmount:  result.RefundAmount,
	})
}

// CreateRefund godoc
// @Summary Create a provider-side refund and revoke the purchases behind it
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.RefundCreateRequest true "Payment intent reference and optional reason"
// @Success 200 {object} dto.RefundCreateResponse
// @Failure 400 {object} map[string]string "missing payment intent id"
// @Failure 401 {object} map[string]string "unauthorized"
// @Router /admin/refunds [post]
func (h *AdminHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "paymentIntentId is required"))
		return
	}

	result, err := h.refundSvc.CreateRefund(r.Context(), req.PaymentIntentID, req.Reason)
	if err != nil {
		h.logger.Error().Err(err).Str("payment_intent_id", req.PaymentIntentID).Msg("refund creation failed")
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.RefundCreateResponse{
		RefundID: result.RefundID,
		Amount:   result.Amount,
		Status:   result.Status,
	})
}
