package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	userpkg "github.com/frahmantamala/tutoring-platform/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) userpkg.RepositoryAPI {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *UserRepository) SetDefaultPaymentMethod(ctx context.Context, userID string, paymentMethodID *string) error {
	return r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"default_payment_method_id": paymentMethodID,
			"updated_at":                time.Now(),
		}).Error
}
