package paymentmethod

import (
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/common/validation"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/paymentmethod"
)

type AttachCardResponse struct {
	PaymentMethodID string `json:"payment_method_id"`
	ConfirmationURL string `json:"confirmation_url"`
	Status          string `json:"status"`
}

type PaymentMethodResponse struct {
	ID          string    `json:"id"`
	CardMasked  string    `json:"card_masked"`
	CardType    *string   `json:"card_type,omitempty"`
	ExpiryMonth *string   `json:"expiry_month,omitempty"`
	ExpiryYear  *string   `json:"expiry_year,omitempty"`
	IsDefault   bool      `json:"is_default"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type SetDefaultRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (r *SetDefaultRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("payment_method_id", r.PaymentMethodID).Required().UUID()
	return v.Validate()
}

type DeleteCardResponse struct {
	Deleted              bool `json:"deleted"`
	DefaultMethodCleared bool `json:"default_method_cleared"`
}

func toResponse(m *paymentmethod.PaymentMethod, defaultID *string) *PaymentMethodResponse {
	return &PaymentMethodResponse{
		ID:          m.ID,
		CardMasked:  m.CardMasked,
		CardType:    m.CardType,
		ExpiryMonth: m.ExpiryMonth,
		ExpiryYear:  m.ExpiryYear,
		IsDefault:   defaultID != nil && *defaultID == m.ID,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}
