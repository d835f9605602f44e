package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 类目默认配置仓储。读多写少，不走事务上下文。
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) GetByCategory(ctx context.Context, category string) (*domain.ExpirationSetting, error) {
	var setting domain.ExpirationSetting
	err := r.db.WithContext(ctx).Where("category = ?", category).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 未配置的类目走代码默认值
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *SettingRepository) All(ctx context.Context) ([]*domain.ExpirationSetting, error) {
	var settings []*domain.ExpirationSetting
	if err := r.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *SettingRepository) Upsert(ctx context.Context, setting *domain.ExpirationSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"default_policy", "auto_expire_hours", "confirmation_threshold", "seasonal_months", "updated_at"}),
	}).Create(setting).Error
}
