package paymentmethod

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/transport"
)

type ServiceAPI interface {
	AttachCard(ctx context.Context, userID string) (*AttachCardResponse, error)
	ListCards(ctx context.Context, userID string) ([]*PaymentMethodResponse, error)
	GetDefaultCard(ctx context.Context, userID string) (*PaymentMethodResponse, error)
	SetDefaultCard(ctx context.Context, userID, paymentMethodID string) error
	DeleteCard(ctx context.Context, userID, paymentMethodID string) (*DeleteCardResponse, error)
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

// AttachCard handles POST /api/v1/payment-methods
func (h *Handler) AttachCard(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	resp, err := h.Service.AttachCard(r.Context(), userID)
	if err != nil {
		h.Logger.Error("AttachCard: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// ListCards handles GET /api/v1/payment-methods
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	cards, err := h.Service.ListCards(r.Context(), userID)
	if err != nil {
		h.Logger.Error("ListCards: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payment_methods": cards,
	})
}

// GetDefaultCard handles GET /api/v1/payment-methods/default
func (h *Handler) GetDefaultCard(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	card, err := h.Service.GetDefaultCard(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, card)
}

// SetDefaultCard handles PUT /api/v1/payment-methods/default
func (h *Handler) SetDefaultCard(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req SetDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("SetDefaultCard: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.SetDefaultCard(r.Context(), userID, req.PaymentMethodID); err != nil {
		h.Logger.Error("SetDefaultCard: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "default updated",
	})
}

// DeleteCard handles DELETE /api/v1/payment-methods/{id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	paymentMethodID := chi.URLParam(r, "id")
	if paymentMethodID == "" {
		h.HandleError(w, errors.NewValidationError("payment method id is required", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.DeleteCard(r.Context(), userID, paymentMethodID)
	if err != nil {
		h.Logger.Error("DeleteCard: service error", "error", err, "user_id", userID, "payment_method_id", paymentMethodID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
