package auth

import "strings"

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// Validate checks required fields and returns a ValidationError on failure.
func (d LoginDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

func (d RegisterDTO) Validate() error {
	if d.Email == "" || !strings.Contains(d.Email, "@") {
		return ValidationError{Msg: "a valid email is required"}
	}
	if len(d.Password) < 8 {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	if d.FullName == "" {
		return ValidationError{Msg: "full_name is required"}
	}
	switch d.Role {
	case "", "student", "tutor":
	default:
		return ValidationError{Msg: "role must be student or tutor"}
	}
	return nil
}

// Validate for refresh token DTO
func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return ValidationError{Msg: "refresh_token is required"}
	}
	return nil
}
