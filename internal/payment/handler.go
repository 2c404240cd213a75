package payment

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
	PaySession(ctx context.Context, userID string, req *PaySessionRequest) (*PaymentResponse, error)
	GetPaymentStatus(ctx context.Context, userID, paymentID string) (*PaymentResponse, error)
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

// PaySession handles POST /api/v1/payments/session
func (h *Handler) PaySession(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req PaySessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("PaySession: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.PaySession(r.Context(), userID, &req)
	if err != nil {
		h.Logger.Error("PaySession: service error", "error", err, "user_id", userID, "session_id", req.SessionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// GetPaymentStatus handles GET /api/v1/payments/{id}
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		h.HandleError(w, errors.NewValidationError("payment id is required", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.GetPaymentStatus(r.Context(), userID, paymentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
