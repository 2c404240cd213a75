package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/paymentmethod"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	paymentmethodpkg "github.com/frahmantamala/tutoring-platform/internal/paymentmethod"
	"gorm.io/gorm"
)

type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) paymentmethodpkg.RepositoryAPI {
	return &PaymentMethodRepository{
		db: db,
	}
}

// CreateWithTransaction inserts the pending method and its bind ledger entry
// in one database transaction, so neither row can exist without the other.
func (r *PaymentMethodRepository) CreateWithTransaction(ctx context.Context, pm *paymentmethod.PaymentMethod, tx *transaction.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(g *gorm.DB) error {
		if err := g.Create(pm).Error; err != nil {
			return err
		}
		return g.Create(tx).Error
	})
}

func (r *PaymentMethodRepository) GetByID(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error) {
	var pm paymentmethod.PaymentMethod
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pm, nil
}

func (r *PaymentMethodRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*paymentmethod.PaymentMethod, error) {
	var pm paymentmethod.PaymentMethod
	err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&pm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pm, nil
}

func (r *PaymentMethodRepository) ListActiveByUser(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error) {
	var methods []*paymentmethod.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, paymentmethod.StatusActive).
		Order("created_at DESC").
		Find(&methods).Error
	return methods, err
}

func (r *PaymentMethodRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&paymentmethod.PaymentMethod{}).
		Where("user_id = ? AND status = ?", userID, paymentmethod.StatusActive).
		Count(&count).Error
	return count, err
}

func (r *PaymentMethodRepository) Update(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	pm.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(pm).Error
}

func (r *PaymentMethodRepository) MarkDeleted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&paymentmethod.PaymentMethod{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     paymentmethod.StatusDeleted,
			"updated_at": time.Now(),
		}).Error
}
