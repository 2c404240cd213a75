package user

import (
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID                     string    `gorm:"primaryKey;column:id"`
	Email                  string    `gorm:"column:email;uniqueIndex;not null"`
	Phone                  *string   `gorm:"column:phone;uniqueIndex"`
	PasswordHash           string    `gorm:"column:password_hash;not null"`
	FullName               string    `gorm:"column:full_name"`
	Role                   Role      `gorm:"column:role;not null"`
	AvatarURL              *string   `gorm:"column:avatar_url"`
	Bio                    *string   `gorm:"column:bio"`
	DefaultPaymentMethodID *string   `gorm:"column:default_payment_method_id"`
	CreatedAt              time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt              time.Time `gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}
