package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Payment is one user's charge for a tutoring session.
type Payment struct {
	ID               string          `gorm:"primaryKey;column:id"`
	UserID           string          `gorm:"column:user_id;not null;index"`
	TutorID          string          `gorm:"column:tutor_id;not null"`
	SessionID        *string         `gorm:"column:session_id;index"`
	TransactionID    *string         `gorm:"column:transaction_id"`
	PaymentMethodID  *string         `gorm:"column:payment_method_id"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(10,2)"`
	Currency         string          `gorm:"column:currency;default:RUB"`
	Status           Status          `gorm:"column:status;default:pending"`
	GatewayPaymentID *string         `gorm:"column:gateway_payment_id;index"`
	ErrorMessage     *string         `gorm:"column:error_message"`
	PaidAt           *time.Time      `gorm:"column:paid_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}
