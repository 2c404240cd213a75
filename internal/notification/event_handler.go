package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
)

type UserAPI interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// EventHandler turns domain events into user-facing mail. Delivery failures
// are logged and swallowed; notifications never fail the triggering
// operation.
type EventHandler struct {
	sender EmailSender
	users  UserAPI
	logger *slog.Logger
}

func NewEventHandler(sender EmailSender, users UserAPI, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	u, err := h.users.GetByID(ctx, completed.UserID)
	if err != nil || u == nil {
		h.logger.Error("cannot notify, user lookup failed",
			"user_id", completed.UserID, "error", err)
		return nil
	}

	subject := "Payment confirmed"
	body := fmt.Sprintf("Your payment of %s %s for the tutoring session was received. The session is confirmed.",
		completed.Amount, completed.Currency)

	if err := h.sender.Send(u.Email, subject, body); err != nil {
		h.logger.Error("failed to send payment confirmation mail",
			"error", err, "user_id", completed.UserID)
	}
	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	u, err := h.users.GetByID(ctx, failed.UserID)
	if err != nil || u == nil {
		h.logger.Error("cannot notify, user lookup failed",
			"user_id", failed.UserID, "error", err)
		return nil
	}

	subject := "Payment failed"
	body := fmt.Sprintf("Your payment of %s RUB could not be processed: %s. Please try another card.",
		failed.Amount, failed.FailureReason)

	if err := h.sender.Send(u.Email, subject, body); err != nil {
		h.logger.Error("failed to send payment failure mail",
			"error", err, "user_id", failed.UserID)
	}
	return nil
}

func (h *EventHandler) HandlePaymentMethodActivated(ctx context.Context, event events.Event) error {
	activated, ok := event.(*events.PaymentMethodActivatedEvent)
	if !ok {
		h.logger.Error("invalid event type for method activated handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentMethodActivatedEvent, got %T", event)
	}

	u, err := h.users.GetByID(ctx, activated.UserID)
	if err != nil || u == nil {
		h.logger.Error("cannot notify, user lookup failed",
			"user_id", activated.UserID, "error", err)
		return nil
	}

	subject := "Card linked"
	body := fmt.Sprintf("Your card %s was linked to your account.", activated.CardMasked)
	if activated.SetAsDefault {
		body += " It is now your default payment method."
	}

	if err := h.sender.Send(u.Email, subject, body); err != nil {
		h.logger.Error("failed to send card linked mail",
			"error", err, "user_id", activated.UserID)
	}
	return nil
}

func (h *EventHandler) HandleBookingCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(*events.BookingCreatedEvent)
	if !ok {
		h.logger.Error("invalid event type for booking created handler", "event_type", event.EventType())
		return fmt.Errorf("expected BookingCreatedEvent, got %T", event)
	}

	tutor, err := h.users.GetByID(ctx, created.TutorID)
	if err != nil || tutor == nil {
		h.logger.Error("cannot notify, tutor lookup failed",
			"tutor_id", created.TutorID, "error", err)
		return nil
	}

	subject := "New booking"
	body := "One of your slots was just booked. Check your schedule for details."

	if err := h.sender.Send(tutor.Email, subject, body); err != nil {
		h.logger.Error("failed to send booking mail",
			"error", err, "tutor_id", created.TutorID)
	}
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
	eventBus.Subscribe(events.EventTypePaymentMethodActivated, h.HandlePaymentMethodActivated)
	eventBus.Subscribe(events.EventTypeBookingCreated, h.HandleBookingCreated)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{
			events.EventTypePaymentCompleted,
			events.EventTypePaymentFailed,
			events.EventTypePaymentMethodActivated,
			events.EventTypeBookingCreated,
		})
}
