package handler

import (
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription lifecycle endpoints for signed-in
// users.
type SubscriptionHandler struct {
	refundSvc service.RefundService
	logger    zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(refundSvc service.RefundService, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{refundSvc: refundSvc, logger: logger}
}

// RegisterRoutes registers the subscription endpoints behind authMiddleware.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /subscriptions/cancel", authMiddleware(http.HandlerFunc(h.Cancel)))
}

// Cancel godoc
// @Summary Cancel the caller's subscription at period end
// @Description Requests provider-side cancellation effective at period end; access continues until then.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionCancelResponse
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 404 {object} map[string]string "no current subscription"
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	periodEnd, err := h.refundSvc.CancelSubscription(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.SubscriptionCancelResponse{PeriodEnd: periodEnd})
}
