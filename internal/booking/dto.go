package booking

import (
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/common/validation"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/booking"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/slot"
)

type CreateSlotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (r *CreateSlotRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("date", r.Date).Required()
	v.Field("time", r.Time).Required()
	return v.Validate()
}

type BookSlotRequest struct {
	SlotID string `json:"slot_id"`
}

func (r *BookSlotRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("slot_id", r.SlotID).Required().UUID()
	return v.Validate()
}

type SlotResponse struct {
	ID        string    `json:"id"`
	TutorID   string    `json:"tutor_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingResponse struct {
	ID        string        `json:"id"`
	SlotID    string        `json:"slot_id"`
	TutorID   string        `json:"tutor_id"`
	StudentID string        `json:"student_id"`
	Status    string        `json:"status"`
	Slot      *SlotResponse `json:"slot,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func toSlotResponse(s *slot.Slot) *SlotResponse {
	return &SlotResponse{
		ID:        s.ID,
		TutorID:   s.TutorID,
		Date:      s.Date,
		Time:      s.Time,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
}

func toBookingResponse(b *booking.Booking, s *slot.Slot) *BookingResponse {
	resp := &BookingResponse{
		ID:        b.ID,
		SlotID:    b.SlotID,
		TutorID:   b.TutorID,
		StudentID: b.StudentID,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
	if s != nil {
		resp.Slot = toSlotResponse(s)
	}
	return resp
}
