package paymentmethod

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/paymentmethod"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
	"github.com/google/uuid"
)

// maxActiveCards caps how many active cards a user may keep linked.
const maxActiveCards = 3

type RepositoryAPI interface {
	CreateWithTransaction(ctx context.Context, pm *paymentmethod.PaymentMethod, tx *transaction.Transaction) error
	GetByID(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*paymentmethod.PaymentMethod, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, pm *paymentmethod.PaymentMethod) error
	MarkDeleted(ctx context.Context, id string) error
}

type UserAPI interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	SetDefaultPaymentMethod(ctx context.Context, userID string, paymentMethodID *string) error
}

type GatewayAPI interface {
	CreateCardBinding(ctx context.Context, userID string) (*gatewaytypes.PaymentView, error)
	CapturePayment(ctx context.Context, gatewayPaymentID string, amount gatewaytypes.Amount) (*gatewaytypes.PaymentView, error)
}

type TransactionsAPI interface {
	NewBindTransaction(userID, paymentMethodID string) *transaction.Transaction
	SetGatewayPaymentID(ctx context.Context, transactionID, gatewayPaymentID string) error
	MarkFailed(ctx context.Context, transactionID string, reason string) error
}

// PaymentsCheckerAPI reports whether a method is referenced by payments
// that are still in flight.
type PaymentsCheckerAPI interface {
	HasBlockingPayments(ctx context.Context, paymentMethodID string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo         RepositoryAPI
	users        UserAPI
	gateway      GatewayAPI
	transactions TransactionsAPI
	payments     PaymentsCheckerAPI
	eventBus     EventPublisher
	logger       *slog.Logger
}

func NewService(
	repo RepositoryAPI,
	users UserAPI,
	gateway GatewayAPI,
	transactions TransactionsAPI,
	payments PaymentsCheckerAPI,
	eventBus EventPublisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		users:        users,
		gateway:      gateway,
		transactions: transactions,
		payments:     payments,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// AttachCard starts a card-bind flow. The card limit is checked before any
// gateway call so a rejected attach costs nothing. The pending method and its
// ledger transaction are inserted in one database transaction, so a crash
// can never leave a method without its ledger row. The returned confirmation
// URL sends the user through the gateway's 3-D Secure page; the method stays
// pending until the webhook confirms the bind.
func (s *Service) AttachCard(ctx context.Context, userID string) (*AttachCardResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}

	activeCount, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count active cards", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to check card limit", err)
	}
	if activeCount >= maxActiveCards {
		return nil, errors.ErrTooManyCards
	}

	method := &paymentmethod.PaymentMethod{
		ID:       uuid.New().String(),
		UserID:   userID,
		Provider: paymentmethod.ProviderYookassa,
		Status:   paymentmethod.StatusPending,
	}
	tx := s.transactions.NewBindTransaction(userID, method.ID)
	method.BindTransactionID = &tx.ID

	if err := s.repo.CreateWithTransaction(ctx, method, tx); err != nil {
		s.logger.Error("failed to create payment method", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to create payment method", err)
	}

	view, err := s.gateway.CreateCardBinding(ctx, userID)
	if err != nil {
		if markErr := s.transactions.MarkFailed(ctx, tx.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark bind transaction failed", "error", markErr, "transaction_id", tx.ID)
		}
		if delErr := s.repo.MarkDeleted(ctx, method.ID); delErr != nil {
			s.logger.Error("failed to discard payment method after gateway error",
				"error", delErr, "payment_method_id", method.ID)
		}
		return nil, err
	}

	if err := s.transactions.SetGatewayPaymentID(ctx, tx.ID, view.ID); err != nil {
		return nil, errors.NewInternalError("failed to attach gateway payment id", err)
	}

	method.GatewayPaymentID = &view.ID
	if err := s.repo.Update(ctx, method); err != nil {
		s.logger.Error("failed to backfill payment method gateway id",
			"error", err, "payment_method_id", method.ID)
		return nil, errors.NewInternalError("failed to update payment method", err)
	}

	s.logger.Info("card binding started",
		"payment_method_id", method.ID,
		"user_id", userID,
		"gateway_payment_id", view.ID)

	return &AttachCardResponse{
		PaymentMethodID: method.ID,
		ConfirmationURL: view.Confirmation.ConfirmationURL,
		Status:          string(method.Status),
	}, nil
}

// ListCards returns the user's active cards, newest first, flagging the
// current default.
func (s *Service) ListCards(ctx context.Context, userID string) ([]*PaymentMethodResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}

	methods, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list payment methods", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to list payment methods", err)
	}

	responses := make([]*PaymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		responses = append(responses, toResponse(m, u.DefaultPaymentMethodID))
	}
	return responses, nil
}

// GetDefaultCard resolves the user's default card. A stale pointer to a
// deleted card is cleared rather than surfaced.
func (s *Service) GetDefaultCard(ctx context.Context, userID string) (*PaymentMethodResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	if u.DefaultPaymentMethodID == nil {
		return nil, errors.ErrNoDefaultCard
	}

	method, err := s.repo.GetByID(ctx, *u.DefaultPaymentMethodID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load default payment method", err)
	}
	if method == nil || method.Status != paymentmethod.StatusActive {
		s.logger.Warn("default payment method is stale, clearing",
			"user_id", userID,
			"payment_method_id", *u.DefaultPaymentMethodID)
		if err := s.users.SetDefaultPaymentMethod(ctx, userID, nil); err != nil {
			s.logger.Error("failed to clear stale default card", "error", err, "user_id", userID)
		}
		return nil, errors.ErrNoDefaultCard
	}

	return toResponse(method, u.DefaultPaymentMethodID), nil
}

// SetDefaultCard points the user's default at one of their active cards.
func (s *Service) SetDefaultCard(ctx context.Context, userID, paymentMethodID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return errors.ErrUserNotFound
	}

	method, err := s.repo.GetByID(ctx, paymentMethodID)
	if err != nil {
		return errors.NewInternalError("failed to load payment method", err)
	}
	if method == nil || method.UserID != userID || method.Status != paymentmethod.StatusActive {
		return errors.ErrPaymentMethodNotFound
	}

	if err := s.users.SetDefaultPaymentMethod(ctx, userID, &paymentMethodID); err != nil {
		s.logger.Error("failed to set default card", "error", err, "user_id", userID)
		return errors.NewInternalError("failed to set default payment method", err)
	}

	s.logger.Info("default card updated", "user_id", userID, "payment_method_id", paymentMethodID)
	return nil
}

// DeleteCard soft-deletes a card. Cards backing in-flight payments cannot be
// removed. When the deleted card was the default, the default pointer is
// cleared and the response says so; the user picks the next default
// themselves.
func (s *Service) DeleteCard(ctx context.Context, userID, paymentMethodID string) (*DeleteCardResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}

	method, err := s.repo.GetByID(ctx, paymentMethodID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payment method", err)
	}
	if method == nil || method.UserID != userID || method.Status != paymentmethod.StatusActive {
		return nil, errors.ErrPaymentMethodNotFound
	}

	blocked, err := s.payments.HasBlockingPayments(ctx, paymentMethodID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check pending payments", err)
	}
	if blocked {
		return nil, errors.ErrCardInUse
	}

	if err := s.repo.MarkDeleted(ctx, paymentMethodID); err != nil {
		s.logger.Error("failed to delete payment method", "error", err, "payment_method_id", paymentMethodID)
		return nil, errors.NewInternalError("failed to delete payment method", err)
	}

	resp := &DeleteCardResponse{Deleted: true}

	wasDefault := u.DefaultPaymentMethodID != nil && *u.DefaultPaymentMethodID == paymentMethodID
	if wasDefault {
		if err := s.users.SetDefaultPaymentMethod(ctx, userID, nil); err != nil {
			s.logger.Error("failed to clear default card", "error", err, "user_id", userID)
			return nil, errors.NewInternalError("failed to update default payment method", err)
		}
		resp.DefaultMethodCleared = true
	}

	s.logger.Info("card deleted",
		"user_id", userID,
		"payment_method_id", paymentMethodID,
		"was_default", wasDefault)

	return resp, nil
}

// HandleBindingResult reconciles a gateway notification for a card-bind
// payment. Activation is idempotent: a replayed webhook for an already
// active card is a no-op. A hold in waiting_for_capture is captured so the
// gateway finishes the bind and sends the final succeeded event.
func (s *Service) HandleBindingResult(ctx context.Context, view *gatewaytypes.PaymentView) error {
	method, err := s.repo.GetByGatewayPaymentID(ctx, view.ID)
	if err != nil {
		return errors.NewInternalError("failed to load payment method for binding", err)
	}
	if method == nil {
		s.logger.Warn("binding notification for unknown payment method",
			"gateway_payment_id", view.ID)
		return nil
	}

	switch view.Status {
	case gatewaytypes.StatusSucceeded:
		return s.activateMethod(ctx, method, view)

	case gatewaytypes.StatusWaitingForCapture:
		_, err := s.gateway.CapturePayment(ctx, view.ID, view.Amount)
		if err != nil {
			s.logger.Error("failed to capture binding hold",
				"error", err,
				"gateway_payment_id", view.ID,
				"payment_method_id", method.ID)
			return err
		}
		s.logger.Info("binding hold captured, awaiting final notification",
			"gateway_payment_id", view.ID,
			"payment_method_id", method.ID)
		return nil

	case gatewaytypes.StatusCanceled, gatewaytypes.StatusFailed:
		if method.Status == paymentmethod.StatusDeleted {
			return nil
		}
		if err := s.repo.MarkDeleted(ctx, method.ID); err != nil {
			return errors.NewInternalError("failed to discard failed binding", err)
		}
		s.logger.Info("card binding failed, method discarded",
			"payment_method_id", method.ID,
			"gateway_status", view.Status,
			"reason", view.ErrorReason())
		return nil

	default:
		s.logger.Warn("unhandled binding status",
			"gateway_payment_id", view.ID,
			"gateway_status", view.Status)
		return nil
	}
}

func (s *Service) activateMethod(ctx context.Context, method *paymentmethod.PaymentMethod, view *gatewaytypes.PaymentView) error {
	if method.Status == paymentmethod.StatusActive {
		s.logger.Info("payment method already active, skipping",
			"payment_method_id", method.ID)
		return nil
	}

	if view.PaymentMethod == nil || !view.PaymentMethod.Saved {
		s.logger.Warn("binding succeeded but gateway did not save the card",
			"gateway_payment_id", view.ID,
			"payment_method_id", method.ID)
		return nil
	}

	method.Status = paymentmethod.StatusActive
	method.CardToken = view.PaymentMethod.ID
	if view.PaymentMethod.Card != nil {
		card := view.PaymentMethod.Card
		method.CardMasked = MaskCard(card.First6, card.Last4)
		method.CardType = &card.CardType
		method.ExpiryMonth = &card.ExpiryMonth
		method.ExpiryYear = &card.ExpiryYear
	}

	if err := s.repo.Update(ctx, method); err != nil {
		s.logger.Error("failed to activate payment method",
			"error", err, "payment_method_id", method.ID)
		return errors.NewInternalError("failed to activate payment method", err)
	}

	setAsDefault := false
	u, err := s.users.GetByID(ctx, method.UserID)
	if err == nil && u != nil && u.DefaultPaymentMethodID == nil {
		count, countErr := s.repo.CountActiveByUser(ctx, method.UserID)
		if countErr == nil && count == 1 {
			if err := s.users.SetDefaultPaymentMethod(ctx, method.UserID, &method.ID); err != nil {
				s.logger.Error("failed to auto-set default card",
					"error", err, "user_id", method.UserID)
			} else {
				setAsDefault = true
			}
		}
	}

	s.logger.Info("payment method activated",
		"payment_method_id", method.ID,
		"user_id", method.UserID,
		"card_masked", method.CardMasked,
		"set_as_default", setAsDefault)

	if s.eventBus != nil {
		event := events.NewPaymentMethodActivatedEvent(method.ID, method.UserID, method.CardMasked, setAsDefault)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish activation event", "error", err)
		}
	}

	return nil
}

// GetDefaultMethodID returns the user's default card id, nil when none is
// set.
func (s *Service) GetDefaultMethodID(ctx context.Context, userID string) (*string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return u.DefaultPaymentMethodID, nil
}

// GetActiveMethod loads an active card owned by the user, for charging.
func (s *Service) GetActiveMethod(ctx context.Context, userID, paymentMethodID string) (*paymentmethod.PaymentMethod, error) {
	method, err := s.repo.GetByID(ctx, paymentMethodID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payment method", err)
	}
	if method == nil || method.UserID != userID || method.Status != paymentmethod.StatusActive {
		return nil, errors.ErrPaymentMethodNotFound
	}
	return method, nil
}

// MaskCard renders the stored representation of a card number, the first six
// and last four digits around a fixed six-star filler.
func MaskCard(first6, last4 string) string {
	return fmt.Sprintf("%s******%s", first6, last4)
}
