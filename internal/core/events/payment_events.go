package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted       = "payment.completed"
	EventTypePaymentFailed          = "payment.failed"
	EventTypePaymentMethodActivated = "payment_method.activated"
	EventTypeBookingCreated         = "booking.created"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID        string `json:"payment_id"`
	SessionID        string `json:"session_id"`
	UserID           string `json:"user_id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}

func NewPaymentCompletedEvent(paymentID, sessionID, userID, amount, currency, gatewayPaymentID string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":         paymentID,
				"session_id":         sessionID,
				"user_id":            userID,
				"amount":             amount,
				"currency":           currency,
				"gateway_payment_id": gatewayPaymentID,
			},
		},
		PaymentID:        paymentID,
		SessionID:        sessionID,
		UserID:           userID,
		Amount:           amount,
		Currency:         currency,
		GatewayPaymentID: gatewayPaymentID,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID, sessionID, userID, amount, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"session_id":     sessionID,
				"user_id":        userID,
				"amount":         amount,
				"failure_reason": failureReason,
			},
		},
		PaymentID:     paymentID,
		SessionID:     sessionID,
		UserID:        userID,
		Amount:        amount,
		FailureReason: failureReason,
	}
}

type PaymentMethodActivatedEvent struct {
	BaseEvent
	PaymentMethodID string `json:"payment_method_id"`
	UserID          string `json:"user_id"`
	CardMasked      string `json:"card_masked"`
	SetAsDefault    bool   `json:"set_as_default"`
}

func NewPaymentMethodActivatedEvent(paymentMethodID, userID, cardMasked string, setAsDefault bool) *PaymentMethodActivatedEvent {
	return &PaymentMethodActivatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentMethodActivated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_method_id": paymentMethodID,
				"user_id":           userID,
				"card_masked":       cardMasked,
				"set_as_default":    setAsDefault,
			},
		},
		PaymentMethodID: paymentMethodID,
		UserID:          userID,
		CardMasked:      cardMasked,
		SetAsDefault:    setAsDefault,
	}
}

type BookingCreatedEvent struct {
	BaseEvent
	BookingID string `json:"booking_id"`
	SlotID    string `json:"slot_id"`
	TutorID   string `json:"tutor_id"`
	StudentID string `json:"student_id"`
}

func NewBookingCreatedEvent(bookingID, slotID, tutorID, studentID string) *BookingCreatedEvent {
	return &BookingCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id": bookingID,
				"slot_id":    slotID,
				"tutor_id":   tutorID,
				"student_id": studentID,
			},
		},
		BookingID: bookingID,
		SlotID:    slotID,
		TutorID:   tutorID,
		StudentID: studentID,
	}
}
