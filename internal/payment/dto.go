package payment

import (
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/common/validation"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/payment"
)

type PaySessionRequest struct {
	SessionID       string `json:"session_id"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

func (r *PaySessionRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("session_id", r.SessionID).Required().UUID()
	if r.PaymentMethodID != "" {
		v.Field("payment_method_id", r.PaymentMethodID).UUID()
	}
	return v.Validate()
}

type PaymentResponse struct {
	ID               string     `json:"id"`
	SessionID        *string    `json:"session_id,omitempty"`
	PaymentMethodID  *string    `json:"payment_method_id,omitempty"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	GatewayPaymentID *string    `json:"gateway_payment_id,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:               p.ID,
		SessionID:        p.SessionID,
		PaymentMethodID:  p.PaymentMethodID,
		Amount:           p.Amount.StringFixed(2),
		Currency:         p.Currency,
		Status:           string(p.Status),
		GatewayPaymentID: p.GatewayPaymentID,
		ErrorMessage:     p.ErrorMessage,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
	}
}
