package session

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlanned   Status = "planned"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Session is a scheduled tutoring appointment. PaymentID is stamped when the
// session payment succeeds, at which point the status moves to confirmed.
type Session struct {
	ID        string          `gorm:"primaryKey;column:id"`
	TutorID   string          `gorm:"column:tutor_id;not null;index"`
	StudentID string          `gorm:"column:student_id;not null;index"`
	StartTime time.Time       `gorm:"column:start_time;not null"`
	EndTime   time.Time       `gorm:"column:end_time;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(10,2)"`
	Status    Status          `gorm:"column:status;default:planned"`
	PaymentID *string         `gorm:"column:payment_id"`
	CreatedAt time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Session) TableName() string {
	return "sessions"
}
