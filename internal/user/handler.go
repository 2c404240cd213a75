package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/transport"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, userID string) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*ProfileResponse, error)
}

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		Logger:      logger,
	}
}

// GetProfile handles GET /api/v1/users/me
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/v1/users/me
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("UpdateProfile: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	profile, err := h.Service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.Logger.Error("UpdateProfile: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}
