// Package mysql 信誉分服务的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoreRepository 信誉分快照仓储
type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// GetForUpdate 行锁读取（SELECT ... FOR UPDATE），首次记账时落一条 0 分行。
// 锁的生命周期由环境事务决定，调用方必须在事务内调用。
func (r *ScoreRepository) GetForUpdate(ctx context.Context, userID string) (*domain.TrustScore, error) {
	db := r.getDB(ctx)
	var score domain.TrustScore
	err := lockForUpdate(db.WithContext(ctx)).Where("user_id = ?", userID).First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		score = domain.TrustScore{UserID: userID, Score: 0}
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&score).Error; err != nil {
			return nil, fmt.Errorf("create trust score row: %w", err)
		}
		// 并发首建时重读拿锁
		if err := lockForUpdate(db.WithContext(ctx)).Where("user_id = ?", userID).First(&score).Error; err != nil {
			return nil, err
		}
		return &score, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *ScoreRepository) Get(ctx context.Context, userID string) (*domain.TrustScore, error) {
	var score domain.TrustScore
	err := r.getDB(ctx).WithContext(ctx).Where("user_id = ?", userID).First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *ScoreRepository) UpdateScore(ctx context.Context, userID string, score int64) error {
	return r.getDB(ctx).WithContext(ctx).Model(&domain.TrustScore{}).
		Where("user_id = ?", userID).
		Update("score", score).Error
}

func (r *ScoreRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// EventRepository 账本仓储，只追加
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event *domain.TrustScoreEvent) error {
	return r.getDB(ctx).WithContext(ctx).Create(event).Error
}

func (r *EventRepository) History(ctx context.Context, userID string, limit, offset int) ([]*domain.TrustScoreEvent, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.TrustScoreEvent{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []*domain.TrustScoreEvent
	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *EventRepository) BreakdownByType(ctx context.Context, userID string) ([]*domain.Breakdown, error) {
	var rows []*domain.Breakdown
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.TrustScoreEvent{}).
		Select("event_type, COUNT(*) AS event_count, SUM(points_change) AS total_points").
		Where("user_id = ?", userID).
		Group("event_type").
		Order("total_points DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepository) SumPoints(ctx context.Context, userID string) (int64, error) {
	var sum *int64
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.TrustScoreEvent{}).
		Select("SUM(points_change)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *EventRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ConfigRepository 动作分值配置仓储
type ConfigRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) All(ctx context.Context) ([]*domain.ActionConfig, error) {
	var configs []*domain.ActionConfig
	if err := r.db.WithContext(ctx).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *ConfigRepository) Upsert(ctx context.Context, cfg *domain.ActionConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "active", "description", "updated_at"}),
	}).Create(cfg).Error
}
