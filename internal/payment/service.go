package payment

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/payment"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/paymentmethod"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/session"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id string) (*payment.Payment, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*payment.Payment, error)
	GetActiveBySessionID(ctx context.Context, sessionID string) (*payment.Payment, error)
	SetGatewayPaymentID(ctx context.Context, id, gatewayPaymentID string) error
	UpdateStatus(ctx context.Context, id string, status payment.Status, errorMessage *string) (bool, error)
	CompleteWithSession(ctx context.Context, paymentID, transactionID, sessionID string) error
	FailWithTransaction(ctx context.Context, paymentID, transactionID string, reason string) error
	HasBlockingPayments(ctx context.Context, paymentMethodID string) (bool, error)
}

type SessionAPI interface {
	GetByID(ctx context.Context, id string) (*session.Session, error)
}

type MethodResolverAPI interface {
	GetActiveMethod(ctx context.Context, userID, paymentMethodID string) (*paymentmethod.PaymentMethod, error)
	GetDefaultMethodID(ctx context.Context, userID string) (*string, error)
}

type GatewayAPI interface {
	CreateSessionPayment(ctx context.Context, paymentID, methodToken string, amount decimal.Decimal, description string) (*gatewaytypes.PaymentView, error)
	CapturePayment(ctx context.Context, gatewayPaymentID string, amount gatewaytypes.Amount) (*gatewaytypes.PaymentView, error)
	GetPayment(ctx context.Context, gatewayPaymentID string) (*gatewaytypes.PaymentView, error)
}

type TransactionsAPI interface {
	CreateSessionPaymentTransaction(ctx context.Context, userID, paymentMethodID string, amount decimal.Decimal, description string) (*transaction.Transaction, error)
	SetGatewayPaymentID(ctx context.Context, transactionID, gatewayPaymentID string) error
	MarkFailed(ctx context.Context, transactionID string, reason string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo         RepositoryAPI
	sessions     SessionAPI
	methods      MethodResolverAPI
	gateway      GatewayAPI
	transactions TransactionsAPI
	eventBus     EventPublisher
	logger       *slog.Logger
}

func NewService(
	repo RepositoryAPI,
	sessions SessionAPI,
	methods MethodResolverAPI,
	gateway GatewayAPI,
	transactions TransactionsAPI,
	eventBus EventPublisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		sessions:     sessions,
		methods:      methods,
		gateway:      gateway,
		transactions: transactions,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// PaySession charges a saved card for a tutoring session. The payment and
// its ledger transaction are recorded pending before the gateway is called;
// a synchronous gateway verdict is applied immediately, otherwise the rows
// stay processing until the webhook settles them.
func (s *Service) PaySession(ctx context.Context, userID string, req *PaySessionRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.ErrSessionNotFound
	}
	if sess.StudentID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if sess.Status == session.StatusCancelled {
		return nil, errors.NewValidationError("session is cancelled", errors.ErrCodeInvalidSessionState)
	}
	if sess.Status != session.StatusPlanned && sess.Status != session.StatusConfirmed {
		return nil, errors.NewValidationError("session is not payable", errors.ErrCodeInvalidSessionState)
	}
	if sess.PaymentID != nil {
		return nil, errors.ErrSessionAlreadyPaid
	}

	existing, err := s.repo.GetActiveBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check existing payments", err)
	}
	if existing != nil {
		return nil, errors.ErrSessionAlreadyPaid
	}

	methodID := req.PaymentMethodID
	if methodID == "" {
		defaultID, err := s.methods.GetDefaultMethodID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if defaultID == nil {
			return nil, errors.ErrNoDefaultCard
		}
		methodID = *defaultID
	}

	method, err := s.methods.GetActiveMethod(ctx, userID, methodID)
	if err != nil {
		return nil, err
	}

	description := "Tutoring session payment"

	tx, err := s.transactions.CreateSessionPaymentTransaction(ctx, userID, method.ID, sess.Price, description)
	if err != nil {
		return nil, errors.NewInternalError("failed to create transaction", err)
	}

	p := &payment.Payment{
		ID:              uuid.New().String(),
		UserID:          userID,
		TutorID:         sess.TutorID,
		SessionID:       &sess.ID,
		TransactionID:   &tx.ID,
		PaymentMethodID: &method.ID,
		Amount:          sess.Price,
		Currency:        "RUB",
		Status:          payment.StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create payment record", "error", err, "session_id", sess.ID)
		return nil, errors.NewInternalError("failed to create payment", err)
	}

	view, err := s.gateway.CreateSessionPayment(ctx, p.ID, method.CardToken, sess.Price, description)
	if err != nil {
		reason := err.Error()
		if failErr := s.repo.FailWithTransaction(ctx, p.ID, tx.ID, reason); failErr != nil {
			s.logger.Error("failed to mark payment failed after gateway error",
				"error", failErr, "payment_id", p.ID)
		}
		s.logger.Error("gateway rejected session payment",
			"error", err,
			"payment_id", p.ID,
			"session_id", sess.ID)
		return nil, err
	}

	if err := s.repo.SetGatewayPaymentID(ctx, p.ID, view.ID); err != nil {
		return nil, errors.NewInternalError("failed to attach gateway payment id", err)
	}
	if err := s.transactions.SetGatewayPaymentID(ctx, tx.ID, view.ID); err != nil {
		return nil, errors.NewInternalError("failed to attach gateway payment id", err)
	}
	p.GatewayPaymentID = &view.ID

	switch view.Status {
	case gatewaytypes.StatusSucceeded:
		if err := s.settleSuccess(ctx, p, tx.ID, view); err != nil {
			return nil, err
		}
		p.Status = payment.StatusSuccess

	case gatewaytypes.StatusCanceled, gatewaytypes.StatusFailed:
		reason := view.ErrorReason()
		if reason == "" {
			reason = "payment rejected by gateway"
		}
		if err := s.repo.FailWithTransaction(ctx, p.ID, tx.ID, reason); err != nil {
			return nil, errors.NewInternalError("failed to record payment failure", err)
		}
		p.Status = payment.StatusFailed
		p.ErrorMessage = &reason

	default:
		if _, err := s.repo.UpdateStatus(ctx, p.ID, payment.StatusProcessing, nil); err != nil {
			return nil, errors.NewInternalError("failed to update payment status", err)
		}
		p.Status = payment.StatusProcessing
	}

	s.logger.Info("session payment initiated",
		"payment_id", p.ID,
		"session_id", sess.ID,
		"gateway_payment_id", view.ID,
		"status", p.Status)

	return toPaymentResponse(p), nil
}

// GetPaymentStatus returns a payment the caller owns.
func (s *Service) GetPaymentStatus(ctx context.Context, userID, paymentID string) (*PaymentResponse, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payment", err)
	}
	if p == nil {
		return nil, errors.ErrPaymentNotFound
	}
	if p.UserID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}
	return toPaymentResponse(p), nil
}

// HandleSessionPaymentResult reconciles a gateway notification for a session
// payment. Success settles the payment, its transaction and the session in
// one database transaction; replays against settled payments are no-ops.
func (s *Service) HandleSessionPaymentResult(ctx context.Context, view *gatewaytypes.PaymentView) error {
	p, err := s.repo.GetByGatewayPaymentID(ctx, view.ID)
	if err != nil {
		return errors.NewInternalError("failed to load payment for notification", err)
	}
	if p == nil {
		s.logger.Warn("payment notification for unknown payment",
			"gateway_payment_id", view.ID)
		return nil
	}

	if p.Status == payment.StatusSuccess || p.Status == payment.StatusFailed || p.Status == payment.StatusCanceled {
		s.logger.Info("payment already settled, skipping notification",
			"payment_id", p.ID,
			"status", p.Status)
		return nil
	}

	transactionID := ""
	if p.TransactionID != nil {
		transactionID = *p.TransactionID
	}

	switch view.Status {
	case gatewaytypes.StatusSucceeded:
		return s.settleSuccess(ctx, p, transactionID, view)

	case gatewaytypes.StatusWaitingForCapture:
		_, err := s.gateway.CapturePayment(ctx, view.ID, view.Amount)
		if err != nil {
			s.logger.Error("failed to capture session payment",
				"error", err,
				"gateway_payment_id", view.ID,
				"payment_id", p.ID)
			return err
		}
		return nil

	case gatewaytypes.StatusCanceled, gatewaytypes.StatusFailed:
		reason := view.ErrorReason()
		if reason == "" {
			reason = "payment rejected by gateway"
		}
		if err := s.repo.FailWithTransaction(ctx, p.ID, transactionID, reason); err != nil {
			return errors.NewInternalError("failed to record payment failure", err)
		}

		s.logger.Info("session payment failed",
			"payment_id", p.ID,
			"reason", reason)

		if s.eventBus != nil {
			sessionID := ""
			if p.SessionID != nil {
				sessionID = *p.SessionID
			}
			event := events.NewPaymentFailedEvent(p.ID, sessionID, p.UserID, p.Amount.StringFixed(2), reason)
			if err := s.eventBus.Publish(ctx, event); err != nil {
				s.logger.Error("failed to publish payment failed event", "error", err)
			}
		}
		return nil

	default:
		s.logger.Warn("unhandled payment status in notification",
			"gateway_payment_id", view.ID,
			"gateway_status", view.Status)
		return nil
	}
}

// RefreshFromGateway polls the gateway for the payment's current state and
// applies it, used by the browser return callback which races the webhook.
func (s *Service) RefreshFromGateway(ctx context.Context, gatewayPaymentID string) error {
	view, err := s.gateway.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		return err
	}
	return s.HandleSessionPaymentResult(ctx, view)
}

func (s *Service) settleSuccess(ctx context.Context, p *payment.Payment, transactionID string, view *gatewaytypes.PaymentView) error {
	sessionID := ""
	if p.SessionID != nil {
		sessionID = *p.SessionID
	}

	if err := s.repo.CompleteWithSession(ctx, p.ID, transactionID, sessionID); err != nil {
		s.logger.Error("failed to settle payment",
			"error", err,
			"payment_id", p.ID,
			"session_id", sessionID)
		return errors.NewInternalError("failed to settle payment", err)
	}

	s.logger.Info("session payment settled",
		"payment_id", p.ID,
		"session_id", sessionID,
		"gateway_payment_id", view.ID)

	if s.eventBus != nil {
		event := events.NewPaymentCompletedEvent(p.ID, sessionID, p.UserID, p.Amount.StringFixed(2), p.Currency, view.ID)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish payment completed event", "error", err)
		}
	}

	return nil
}
