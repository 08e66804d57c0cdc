package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/asset-review-api/internal/models"
)

// SettingRepository reads and writes keyed application settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (models.AppSetting, error)
	Upsert(ctx context.Context, setting *models.AppSetting) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository constructs a settings repository.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (models.AppSetting, error) {
	var setting models.AppSetting
	err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	return setting, err
}

func (r *settingRepository) Upsert(ctx context.Context, setting *models.AppSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(setting).Error
}
