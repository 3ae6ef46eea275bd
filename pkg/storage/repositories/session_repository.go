package repositories

import (
	"context"
	"errors"

	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session after checking, in the same transaction, that
// its proxy exists. A missing proxy is an integrity failure and no row is
// written.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var proxy models.Proxy
		err := tx.Select("id").Where("id = ?", s.ProxyID).First(&proxy).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Integrity("Proxy with id %d does not exist", s.ProxyID)
		}
		if err != nil {
			return err
		}
		return tx.Create(s).Error
	})
}

// List returns sessions of existing proxies, newest first. Sessions created
// at the same instant are ordered by insertion (id).
func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]models.Session, error) {
	sessions := []models.Session{}
	if err := r.db.WithContext(ctx).Model(&models.Session{}).
		Select("proxy_logs.*").
		Joins("JOIN proxies ON proxies.id = proxy_logs.proxy_id").
		Order("proxy_logs.created_at DESC").
		Order("proxy_logs.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Session{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
