package slot

import (
	"time"
)

type Status string

const (
	StatusFree   Status = "free"
	StatusBooked Status = "booked"
)

type Slot struct {
	ID        string    `gorm:"primaryKey;column:id"`
	TutorID   string    `gorm:"column:tutor_id;not null;index"`
	Date      string    `gorm:"column:date;not null"`
	Time      string    `gorm:"column:time;not null"`
	Status    Status    `gorm:"column:status;default:free"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (Slot) TableName() string {
	return "slots"
}

// StartsAt combines the date and time columns into a single instant.
func (s *Slot) StartsAt() (time.Time, error) {
	return time.Parse("2006-01-02T15:04", s.Date+"T"+s.Time)
}
