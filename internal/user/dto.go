package user

import (
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/common/validation"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
)

type ProfileResponse struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	Phone                  *string   `json:"phone,omitempty"`
	FullName               string    `json:"full_name"`
	Role                   string    `json:"role"`
	AvatarURL              *string   `json:"avatar_url,omitempty"`
	Bio                    *string   `json:"bio,omitempty"`
	DefaultPaymentMethodID *string   `json:"default_payment_method_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

func (r *UpdateProfileRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	if r.FullName != nil {
		v.Field("full_name", *r.FullName).Required().MaxLength(200)
	}
	if r.Bio != nil {
		v.Field("bio", *r.Bio).MaxLength(2000)
	}
	return v.Validate()
}

func toProfileResponse(u *user.User) *ProfileResponse {
	return &ProfileResponse{
		ID:                     u.ID,
		Email:                  u.Email,
		Phone:                  u.Phone,
		FullName:               u.FullName,
		Role:                   string(u.Role),
		AvatarURL:              u.AvatarURL,
		Bio:                    u.Bio,
		DefaultPaymentMethodID: u.DefaultPaymentMethodID,
		CreatedAt:              u.CreatedAt,
	}
}
