package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/apperr"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AccessHandler exposes the access evaluator to content-serving pages.
type AccessHandler struct {
	accessSvc   service.AccessService
	downloadSvc service.DownloadService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(accessSvc service.AccessService, downloadSvc service.DownloadService, validate *validator.Validate, logger zerolog.Logger) *AccessHandler {
	return &AccessHandler{accessSvc: accessSvc, downloadSvc: downloadSvc, validate: validate, logger: logger}
}

// RegisterRoutes registers the access endpoints. Download accepts either an
// access token in the body or a bearer token, so it sits behind optional auth.
func (h *AccessHandler) RegisterRoutes(mux *http.ServeMux, optionalAuthMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /access/validate", h.ValidateToken)
	mux.HandleFunc("POST /access/subscription", h.SubscriptionAccess)
	mux.Handle("POST /guides/download", optionalAuthMiddleware(http.HandlerFunc(h.Download)))
}

// ValidateToken godoc
// @Summary Validate an access token for one guide
// @Tags access
// @Accept json
// @Produce json
// @Param request body dto.ValidateAccessRequest true "Token and guide id"
// @Success 200 {object} dto.ValidateAccessResponse
// @Failure 400 {object} map[string]string "missing fields"
// @Router /access/validate [post]
func (h *AccessHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "accessToken and guideId are required"))
		return
	}

	result, err := h.accessSvc.ValidateToken(r.Context(), req.AccessToken, req.GuideID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.ValidateAccessResponse{
		Valid:     result.Valid,
		GuideID:   result.GuideID,
		GuideName: result.GuideName,
		Reason:    result.Reason,
	})
}

// SubscriptionAccess godoc
// @Summary Evaluate identity-based access
// @Description Checks active subscription first, then legacy one-time purchase for the given guide.
// @Tags access
// @Accept json
// @Produce json
// @Param request body dto.SubscriptionAccessRequest true "Identity and optional guide id"
// @Success 200 {object} dto.SubscriptionAccessResponse
// @Failure 400 {object} map[string]string "missing identity"
// @Router /access/subscription [post]
func (h *AccessHandler) SubscriptionAccess(w http.ResponseWriter, r *http.Request) {
	var req dto.SubscriptionAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "email is malformed"))
		return
	}

	result, err := h.accessSvc.HasAccess(r.Context(), req.UserID, req.Email, req.GuideID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.SubscriptionAccessResponse{
		HasAccess:  result.HasAccess,
		AccessType: result.AccessType,
		ValidUntil: result.ValidUntil,
		Reason:     result.Reason,
	})
}

// Download godoc
// @Summary Exchange an entitlement for a short-lived guide URL
// @Description Accepts an access token in the body, or a bearer token for subscription holders.
// @Tags access
// @Accept json
// @Produce json
// @Param request body dto.DownloadRequest true "Guide id and optional access token"
// @Success 200 {object} dto.DownloadResponse
// @Failure 400 {object} map[string]string "missing fields"
// @Failure 403 {object} map[string]string "no entitlement for the guide"
// @Router /guides/download [post]
func (h *AccessHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req dto.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "guideId is required"))
		return
	}

	granted, err := h.checkDownloadAccess(r, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !granted {
		writeJSON(w, h.logger, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	url, expiresAt, err := h.downloadSvc.GuideURL(r.Context(), req.GuideID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.DownloadResponse{URL: url, ExpiresAt: expiresAt})
}

// checkDownloadAccess evaluates the access token when one is presented,
// otherwise the bearer identity injected by the optional auth middleware.
func (h *AccessHandler) checkDownloadAccess(r *http.Request, req dto.DownloadRequest) (bool, error) {
	if req.AccessToken != "" {
		validation, err := h.accessSvc.ValidateToken(r.Context(), req.AccessToken, req.GuideID)
		if err != nil {
			return false, err
		}
		return validation.Valid, nil
	}

	userID, _ := r.Context().Value(middleware.UserContextKey).(string)
	email, _ := r.Context().Value(middleware.EmailContextKey).(string)
	if userID == "" && email == "" {
		return false, apperr.E(apperr.KindValidation, "accessToken or a bearer token is required")
	}
	decision, err := h.accessSvc.HasAccess(r.Context(), userID, email, req.GuideID)
	if err != nil {
		return false, err
	}
	return decision.HasAccess, nil
}
