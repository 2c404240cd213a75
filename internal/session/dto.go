package session

import (
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/common/validation"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/session"
	"github.com/shopspring/decimal"
)

type CreateSessionRequest struct {
	StudentID string          `json:"student_id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Price     decimal.Decimal `json:"price"`
}

func (r *CreateSessionRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("student_id", r.StudentID).Required().UUID()
	v.Field("price", r.Price).Required().PositiveAmount()
	v.Field("start_time", r.StartTime).NotPast()
	if err := v.Validate(); err != nil {
		return err
	}
	if !r.EndTime.After(r.StartTime) {
		return errors.NewValidationError("end_time must be after start_time", errors.ErrCodeInvalidDate)
	}
	return nil
}

type SessionResponse struct {
	ID        string    `json:"id"`
	TutorID   string    `json:"tutor_id"`
	StudentID string    `json:"student_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Price     string    `json:"price"`
	Status    string    `json:"status"`
	PaymentID *string   `json:"payment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionResponse(s *session.Session) *SessionResponse {
	return &SessionResponse{
		ID:        s.ID,
		TutorID:   s.TutorID,
		StudentID: s.StudentID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Price:     s.Price.StringFixed(2),
		Status:    string(s.Status),
		PaymentID: s.PaymentID,
		CreatedAt: s.CreatedAt,
	}
}
