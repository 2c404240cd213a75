package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	transactionpkg "github.com/frahmantamala/tutoring-platform/internal/transaction"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transactionpkg.RepositoryAPI {
	return &TransactionRepository{
		db: db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) SetGatewayPaymentID(ctx context.Context, id, gatewayPaymentID string) error {
	return r.db.WithContext(ctx).Model(&transaction.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_payment_id": gatewayPaymentID,
			"updated_at":         time.Now(),
		}).Error
}

// UpdateStatus moves a transaction forward only while it is not terminal.
// The WHERE clause makes the write a compare-and-set so a late or replayed
// webhook can never regress succeeded, canceled or failed rows. Returns
// false when no row changed.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, status transaction.Status, errorReason *string) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorReason != nil {
		updates["error_reason"] = *errorReason
	}

	result := r.db.WithContext(ctx).Model(&transaction.Transaction{}).
		Where("id = ? AND status NOT IN ?", id, []transaction.Status{
			transaction.StatusSucceeded,
			transaction.StatusCanceled,
			transaction.StatusFailed,
		}).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
