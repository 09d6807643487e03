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

// CheckoutHandler exposes checkout reconciliation to the purchase success page.
type CheckoutHandler struct {
	checkoutSvc service.CheckoutService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc service.CheckoutService, validate *validator.Validate, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc, validate: validate, logger: logger}
}

// RegisterRoutes registers the checkout endpoints.
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /checkout/session", h.Reconcile)
}

// Reconcile godoc
// @Summary Resolve the purchases behind a completed checkout session
// @Description Returns the access tokens for every guide in the session, creating records on first call.
// @Tags checkout
// @Accept json
// @Produce json
// @Param request body dto.CheckoutReconcileRequest true "Checkout session reference"
// @Success 200 {object} dto.CheckoutReconcileResponse
// @Failure 400 {object} map[string]string "missing session id"
// @Failure 404 {object} map[string]string "session not found"
// @Router /checkout/session [post]
func (h *CheckoutHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckoutReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "sessionId is required"))
		return
	}

	result, err := h.checkoutSvc.Reconcile(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := dto.CheckoutReconcileResponse{Purchases: make([]dto.PurchaseGrantDTO, 0, len(result.Purchases))}
	for _, g := range result.Purchases {
		resp.Purchases = append(resp.Purchases, dto.PurchaseGrantDTO{
			GuideID:     g.GuideID,
			GuideName:   g.GuideName,
			AccessToken: g.AccessToken,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
