package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"

	ErrCodeUserNotFound          ErrorCode = "USER_NOT_FOUND"
	ErrCodeSessionNotFound       ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSlotNotFound          ErrorCode = "SLOT_NOT_FOUND"
	ErrCodeBookingNotFound       ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodePaymentNotFound       ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodePaymentMethodNotFound ErrorCode = "PAYMENT_METHOD_NOT_FOUND"

	ErrCodeSlotTaken           ErrorCode = "SLOT_TAKEN"
	ErrCodeSessionAlreadyPaid  ErrorCode = "SESSION_ALREADY_PAID"
	ErrCodeInvalidSessionState ErrorCode = "INVALID_SESSION_STATE"
	ErrCodeTooManyCards        ErrorCode = "TOO_MANY_CARDS"
	ErrCodeCardInUse           ErrorCode = "CARD_IN_USE"
	ErrCodeNoDefaultCard       ErrorCode = "NO_DEFAULT_CARD"
	ErrCodeUnauthorizedAccess  ErrorCode = "UNAUTHORIZED_ACCESS"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeGatewayFailure ErrorCode = "GATEWAY_FAILURE"
	ErrCodePaymentFailed  ErrorCode = "PAYMENT_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewGatewayError wraps a failure reported by the external payment gateway.
func NewGatewayError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       ErrCodeGatewayFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrUserNotFound          = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrSessionNotFound       = NewNotFoundError("Session not found", ErrCodeSessionNotFound)
	ErrSlotNotFound          = NewNotFoundError("Slot not found", ErrCodeSlotNotFound)
	ErrBookingNotFound       = NewNotFoundError("Booking not found", ErrCodeBookingNotFound)
	ErrPaymentNotFound       = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrPaymentMethodNotFound = NewNotFoundError("Payment method not found or not active", ErrCodePaymentMethodNotFound)

	ErrSessionAlreadyPaid = NewValidationError("Session already paid", ErrCodeSessionAlreadyPaid)
	ErrTooManyCards       = NewConflictError("A maximum of 3 cards can be linked", ErrCodeTooManyCards)
	ErrCardInUse          = NewConflictError("Cannot delete payment method with active payments", ErrCodeCardInUse)
	ErrNoDefaultCard      = NewValidationError("No default payment method set", ErrCodeNoDefaultCard)
	ErrUnauthorizedAccess = NewForbiddenError("unauthorized access to resource", ErrCodeUnauthorizedAccess)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
