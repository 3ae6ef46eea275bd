package repositories

import (
	"context"
	"fmt"

	"github.com/tphan267/arqut-fleet/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List returns all settings ordered by key
func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	settings := []models.Setting{}
	if err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *SettingRepository) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).Where(&models.Setting{Key: key}).First(&setting).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("Setting %q", key))
	}
	return &setting, nil
}

// Upsert writes value and description for key in one conflict-aware
// statement. On an existing key id and created_at are kept. The stored row
// is read back since the insert id is not reliable after an update.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string, description *string) (*models.Setting, error) {
	now := r.db.NowFunc()
	setting := &models.Setting{
		Key:         key,
		Value:       value,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("Setting %q", key))
	}

	return r.GetByKey(ctx, key)
}

func (r *SettingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Setting{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
