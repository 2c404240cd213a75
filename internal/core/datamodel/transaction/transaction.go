package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending           Status = "pending"
	StatusSucceeded         Status = "succeeded"
	StatusCanceled          Status = "canceled"
	StatusFailed            Status = "failed"
	StatusWaitingForCapture Status = "waiting_for_capture"
)

// IsTerminal reports whether the status is final. Terminal transactions
// must never move to a different status.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusCanceled || s == StatusFailed
}

type Type string

const (
	TypeCardBinding    Type = "card_binding"
	TypeSessionPayment Type = "session_payment"
)

// Transaction is the ledger record of one attempt to talk to the payment
// gateway. GatewayPaymentID stays nil until the gateway call returns.
type Transaction struct {
	ID               string          `gorm:"primaryKey;column:id"`
	UserID           string          `gorm:"column:user_id;not null;index"`
	PaymentMethodID  *string         `gorm:"column:payment_method_id"`
	GatewayPaymentID *string         `gorm:"column:gateway_payment_id;index"`
	Type             Type            `gorm:"column:type;default:card_binding"`
	Status           Status          `gorm:"column:status;default:pending"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(10,2)"`
	Description      string          `gorm:"column:description"`
	ErrorReason      *string         `gorm:"column:error_reason"`
	CreatedAt        time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Transaction) TableName() string {
	return "transactions"
}
