package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/payment"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/session"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	paymentpkg "github.com/frahmantamala/tutoring-platform/internal/payment"
	"gorm.io/gorm"
)

var terminalStatuses = []payment.Status{
	payment.StatusSuccess,
	payment.StatusFailed,
	payment.StatusCanceled,
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetActiveBySessionID returns a payment for the session that is pending,
// processing or already succeeded. Failed and canceled attempts do not block
// a retry.
func (r *PaymentRepository) GetActiveBySessionID(ctx context.Context, sessionID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status IN ?", sessionID, []payment.Status{
			payment.StatusPending,
			payment.StatusProcessing,
			payment.StatusSuccess,
		}).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) SetGatewayPaymentID(ctx context.Context, id, gatewayPaymentID string) error {
	return r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_payment_id": gatewayPaymentID,
			"updated_at":         time.Now(),
		}).Error
}

// UpdateStatus moves a payment forward only while it is not terminal.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status payment.Status, errorMessage *string) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}

	result := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CompleteWithSession settles a successful payment: the payment, its ledger
// transaction and the session are all updated inside one database
// transaction so no observer ever sees a paid session without a successful
// payment or the other way round.
func (r *PaymentRepository) CompleteWithSession(ctx context.Context, paymentID, transactionID, sessionID string) error {
	now := time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&payment.Payment{}).
			Where("id = ? AND status NOT IN ?", paymentID, terminalStatuses).
			Updates(map[string]interface{}{
				"status":     payment.StatusSuccess,
				"paid_at":    now,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Already settled by a concurrent webhook.
			return nil
		}

		if transactionID != "" {
			if err := tx.Model(&transaction.Transaction{}).
				Where("id = ? AND status NOT IN ?", transactionID, []transaction.Status{
					transaction.StatusSucceeded,
					transaction.StatusCanceled,
					transaction.StatusFailed,
				}).
				Updates(map[string]interface{}{
					"status":     transaction.StatusSucceeded,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		if sessionID != "" {
			if err := tx.Model(&session.Session{}).
				Where("id = ?", sessionID).
				Updates(map[string]interface{}{
					"status":     session.StatusConfirmed,
					"payment_id": paymentID,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// FailWithTransaction marks a payment and its ledger transaction failed in
// one database transaction.
func (r *PaymentRepository) FailWithTransaction(ctx context.Context, paymentID, transactionID string, reason string) error {
	now := time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&payment.Payment{}).
			Where("id = ? AND status NOT IN ?", paymentID, terminalStatuses).
			Updates(map[string]interface{}{
				"status":        payment.StatusFailed,
				"error_message": reason,
				"updated_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if transactionID != "" {
			if err := tx.Model(&transaction.Transaction{}).
				Where("id = ? AND status NOT IN ?", transactionID, []transaction.Status{
					transaction.StatusSucceeded,
					transaction.StatusCanceled,
					transaction.StatusFailed,
				}).
				Updates(map[string]interface{}{
					"status":       transaction.StatusFailed,
					"error_reason": reason,
					"updated_at":   now,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// HasBlockingPayments reports whether any payment backed by the method is
// still in flight.
func (r *PaymentRepository) HasBlockingPayments(ctx context.Context, paymentMethodID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("payment_method_id = ? AND status IN ?", paymentMethodID, []payment.Status{
			payment.StatusPending,
			payment.StatusProcessing,
		}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
