package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/session"
	sessionpkg "github.com/frahmantamala/tutoring-platform/internal/session"
	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) sessionpkg.RepositoryAPI {
	return &SessionRepository{
		db: db,
	}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	var s session.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	var sessions []*session.Session
	err := r.db.WithContext(ctx).
		Where("student_id = ? OR tutor_id = ?", userID, userID).
		Order("start_time DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status session.Status) error {
	return r.db.WithContext(ctx).Model(&session.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
