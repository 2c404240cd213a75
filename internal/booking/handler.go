package booking

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
	CreateSlot(ctx context.Context, tutorID string, req *CreateSlotRequest) (*SlotResponse, error)
	ListFreeSlots(ctx context.Context, tutorID string) ([]*SlotResponse, error)
	BookSlot(ctx context.Context, studentID, slotID string) (*BookingResponse, error)
	ListBookings(ctx context.Context, studentID string) ([]*BookingResponse, error)
	CancelBooking(ctx context.Context, studentID, bookingID string) error
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

// CreateSlot handles POST /api/v1/slots
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	tutorID := errors.UserIDFromContext(r.Context())
	if tutorID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.CreateSlot(r.Context(), tutorID, &req)
	if err != nil {
		h.Logger.Error("CreateSlot: service error", "error", err, "tutor_id", tutorID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// ListSlots handles GET /api/v1/tutors/{id}/slots
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	tutorID := chi.URLParam(r, "id")
	if tutorID == "" {
		h.HandleError(w, errors.NewValidationError("tutor id is required", errors.ErrCodeValidationFailed))
		return
	}

	slots, err := h.Service.ListFreeSlots(r.Context(), tutorID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slots": slots,
	})
}

// BookSlot handles POST /api/v1/bookings
func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	studentID := errors.UserIDFromContext(r.Context())
	if studentID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req BookSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.BookSlot(r.Context(), studentID, req.SlotID)
	if err != nil {
		h.Logger.Error("BookSlot: service error", "error", err, "student_id", studentID, "slot_id", req.SlotID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// ListBookings handles GET /api/v1/bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	studentID := errors.UserIDFromContext(r.Context())
	if studentID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	bookings, err := h.Service.ListBookings(r.Context(), studentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
	})
}

// CancelBooking handles DELETE /api/v1/bookings/{id}
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	studentID := errors.UserIDFromContext(r.Context())
	if studentID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		h.HandleError(w, errors.NewValidationError("booking id is required", errors.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.CancelBooking(r.Context(), studentID, bookingID); err != nil {
		h.Logger.Error("CancelBooking: service error", "error", err, "student_id", studentID, "booking_id", bookingID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "booking cancelled",
	})
}
