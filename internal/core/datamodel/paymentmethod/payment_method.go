package paymentmethod

import (
	"time"
)

type Provider string

const (
	ProviderYookassa Provider = "yookassa"
	ProviderStripe   Provider = "stripe"
	ProviderTinkoff  Provider = "tinkoff"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// PaymentMethod is one tokenized card stored for a user. A method becomes
// active only after its bind transaction is confirmed by the gateway.
type PaymentMethod struct {
	ID                string    `gorm:"primaryKey;column:id"`
	UserID            string    `gorm:"column:user_id;not null;index"`
	Provider          Provider  `gorm:"column:provider;default:yookassa"`
	CardMasked        string    `gorm:"column:card_masked"`
	CardToken         string    `gorm:"column:card_token"`
	CardType          *string   `gorm:"column:card_type"`
	ExpiryMonth       *string   `gorm:"column:expiry_month"`
	ExpiryYear        *string   `gorm:"column:expiry_year"`
	GatewayPaymentID  *string   `gorm:"column:gateway_payment_id;index"`
	Status            Status    `gorm:"column:status;default:pending"`
	BindTransactionID *string   `gorm:"column:bind_transaction_id"`
	CreatedAt         time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt         time.Time `gorm:"column:updated_at;default:now()"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}
