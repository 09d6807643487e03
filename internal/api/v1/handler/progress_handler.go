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

// ProgressHandler covers reading-progress and favorites for signed-in users.
type ProgressHandler struct {
	progressSvc service.ProgressService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressSvc service.ProgressService, validate *validator.Validate, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{progressSvc: progressSvc, validate: validate, logger: logger}
}

// RegisterRoutes registers the progress endpoints behind authMiddleware.
func (h *ProgressHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /guides/progress", authMiddleware(http.HandlerFunc(h.GetProgress)))
	mux.Handle("PUT /guides/progress", authMiddleware(http.HandlerFunc(h.SaveProgress)))
	mux.Handle("GET /guides/favorites", authMiddleware(http.HandlerFunc(h.ListFavorites)))
	mux.Handle("POST /guides/favorites", authMiddleware(http.HandlerFunc(h.AddFavorite)))
	mux.Handle("DELETE /guides/favorites", authMiddleware(http.HandlerFunc(h.RemoveFavorite)))
}

func userIDFromContext(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	return userID, ok && userID != ""
}

// GetProgress returns the caller's progress for the guide in the query string.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	guideID := r.URL.Query().Get("guideId")
	if guideID == "" {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "guideId is required"))
		return
	}

	p, err := h.progressSvc.GetProgress(r.Context(), userID, guideID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if p == nil {
		writeJSON(w, h.logger, http.StatusOK, dto.ProgressResponseDTO{GuideID: guideID, Percent: 0})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.ProgressResponseDTO{
		GuideID:   p.GuideID,
		Percent:   p.Percent,
		UpdatedAt: p.UpdatedAt,
	})
}

// SaveProgress stores the caller's progress for a guide.
func (h *ProgressHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.ProgressUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "guideId and percent (0-100) are required"))
		return
	}

	if err := h.progressSvc.SaveProgress(r.Context(), userID, req.GuideID, req.Percent); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFavorites returns the caller's bookmarked guides.
func (h *ProgressHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	favs, err := h.progressSvc.ListFavorites(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]dto.FavoriteResponseDTO, 0, len(favs))
	for _, f := range favs {
		out = append(out, dto.FavoriteResponseDTO{GuideID: f.GuideID, CreatedAt: f.CreatedAt})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// AddFavorite bookmarks a guide.
func (h *ProgressHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.FavoriteDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "guideId is required"))
		return
	}

	if err := h.progressSvc.AddFavorite(r.Context(), userID, req.GuideID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite removes a bookmark.
func (h *ProgressHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.FavoriteDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "guideId is required"))
		return
	}

	if err := h.progressSvc.RemoveFavorite(r.Context(), userID, req.GuideID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
