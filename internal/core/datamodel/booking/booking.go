package booking

import (
	"time"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID        string    `gorm:"primaryKey;column:id"`
	SlotID    string    `gorm:"column:slot_id;index;not null"`
	TutorID   string    `gorm:"column:tutor_id;not null;index"`
	StudentID string    `gorm:"column:student_id;not null;index"`
	Status    Status    `gorm:"column:status;default:confirmed"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (Booking) TableName() string {
	return "bookings"
}
