package session

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
	CreateSession(ctx context.Context, tutorID string, req *CreateSessionRequest) (*SessionResponse, error)
	GetSession(ctx context.Context, userID, sessionID string) (*SessionResponse, error)
	ListSessions(ctx context.Context, userID string) ([]*SessionResponse, error)
	CancelSession(ctx context.Context, userID, sessionID string) error
	CompleteSession(ctx context.Context, userID, sessionID string) error
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

// CreateSession handles POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	tutorID := errors.UserIDFromContext(r.Context())
	if tutorID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.CreateSession(r.Context(), tutorID, &req)
	if err != nil {
		h.Logger.Error("CreateSession: service error", "error", err, "tutor_id", tutorID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	sessionID := chi.URLParam(r, "id")
	resp, err := h.Service.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// ListSessions handles GET /api/v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	sessions, err := h.Service.ListSessions(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// CancelSession handles POST /api/v1/sessions/{id}/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := h.Service.CancelSession(r.Context(), userID, sessionID); err != nil {
		h.Logger.Error("CancelSession: service error", "error", err, "session_id", sessionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "session cancelled",
	})
}

// CompleteSession handles POST /api/v1/sessions/{id}/complete
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := h.Service.CompleteSession(r.Context(), userID, sessionID); err != nil {
		h.Logger.Error("CompleteSession: service error", "error", err, "session_id", sessionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "session completed",
	})
}
