package transaction

import (
	"context"
	"log/slog"

	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryAPI is the persistence surface for transactions. UpdateStatus
// must be a guarded write: it only moves non-terminal rows forward.
type RepositoryAPI interface {
	Create(ctx context.Context, tx *transaction.Transaction) error
	GetByID(ctx context.Context, id string) (*transaction.Transaction, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*transaction.Transaction, error)
	SetGatewayPaymentID(ctx context.Context, id, gatewayPaymentID string) error
	UpdateStatus(ctx context.Context, id string, status transaction.Status, errorReason *string) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// NewBindTransaction builds a pending ledger entry for a card-bind attempt.
// The caller persists it together with the payment method row, so neither can
// exist without the other; the gateway payment id is attached once the
// gateway call returns.
func (s *Service) NewBindTransaction(userID, paymentMethodID string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:              uuid.New().String(),
		UserID:          userID,
		PaymentMethodID: &paymentMethodID,
		Type:            transaction.TypeCardBinding,
		Status:          transaction.StatusPending,
		Amount:          decimal.RequireFromString("1.00"),
		Description:     "Card binding",
	}
}

// CreateSessionPaymentTransaction records a pending ledger entry for a
// session charge.
func (s *Service) CreateSessionPaymentTransaction(ctx context.Context, userID, paymentMethodID string, amount decimal.Decimal, description string) (*transaction.Transaction, error) {
	tx := &transaction.Transaction{
		ID:              uuid.New().String(),
		UserID:          userID,
		PaymentMethodID: &paymentMethodID,
		Type:            transaction.TypeSessionPayment,
		Status:          transaction.StatusPending,
		Amount:          amount,
		Description:     description,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		s.logger.Error("failed to create session payment transaction", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("session payment transaction created",
		"transaction_id", tx.ID,
		"user_id", userID,
		"amount", amount.StringFixed(2))

	return tx, nil
}

func (s *Service) SetGatewayPaymentID(ctx context.Context, transactionID, gatewayPaymentID string) error {
	if err := s.repo.SetGatewayPaymentID(ctx, transactionID, gatewayPaymentID); err != nil {
		s.logger.Error("failed to attach gateway payment id",
			"error", err,
			"transaction_id", transactionID,
			"gateway_payment_id", gatewayPaymentID)
		return err
	}
	return nil
}

func (s *Service) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*transaction.Transaction, error) {
	return s.repo.GetByGatewayPaymentID(ctx, gatewayPaymentID)
}

// UpdateStatusByGatewayPaymentID maps a gateway status onto the local
// transaction matched by gateway payment id. Unknown transactions are logged
// and skipped, not treated as errors, since retried webhooks can outlive
// their rows. Returns the updated transaction, or nil when nothing matched
// or the row was already terminal.
func (s *Service) UpdateStatusByGatewayPaymentID(ctx context.Context, gatewayPaymentID, gatewayStatus string, errorReason *string) (*transaction.Transaction, error) {
	tx, err := s.repo.GetByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		s.logger.Warn("no transaction for gateway payment id, skipping",
			"gateway_payment_id", gatewayPaymentID,
			"gateway_status", gatewayStatus)
		return nil, nil
	}

	status := MapGatewayStatus(gatewayStatus)
	if status == transaction.StatusPending && gatewayStatus != gatewaytypes.StatusPending {
		s.logger.Warn("unknown gateway status, keeping transaction pending",
			"transaction_id", tx.ID,
			"gateway_status", gatewayStatus)
	}

	updated, err := s.repo.UpdateStatus(ctx, tx.ID, status, errorReason)
	if err != nil {
		s.logger.Error("failed to update transaction status",
			"error", err,
			"transaction_id", tx.ID,
			"status", status)
		return nil, err
	}
	if !updated {
		s.logger.Info("transaction already terminal, status unchanged",
			"transaction_id", tx.ID,
			"current_status", tx.Status,
			"incoming_status", status)
		return tx, nil
	}

	tx.Status = status
	tx.ErrorReason = errorReason

	s.logger.Info("transaction status updated",
		"transaction_id", tx.ID,
		"status", status,
		"type", tx.Type)

	return tx, nil
}

// MarkFailed force-fails a pending transaction, used when the gateway call
// itself errors before any webhook can arrive.
func (s *Service) MarkFailed(ctx context.Context, transactionID string, reason string) error {
	_, err := s.repo.UpdateStatus(ctx, transactionID, transaction.StatusFailed, &reason)
	return err
}

// MapGatewayStatus translates a gateway payment status into the local
// transaction status. Anything unrecognized stays pending.
func MapGatewayStatus(gatewayStatus string) transaction.Status {
	switch gatewayStatus {
	case gatewaytypes.StatusSucceeded:
		return transaction.StatusSucceeded
	case gatewaytypes.StatusCanceled:
		return transaction.StatusCanceled
	case gatewaytypes.StatusFailed:
		return transaction.StatusFailed
	case gatewaytypes.StatusWaitingForCapture:
		return transaction.StatusWaitingForCapture
	default:
		return transaction.StatusPending
	}
}
