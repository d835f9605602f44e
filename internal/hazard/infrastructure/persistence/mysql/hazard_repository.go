// Package mysql 灾害服务的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HazardRepository 灾害聚合仓储
type HazardRepository struct {
	db *gorm.DB
}

func NewHazardRepository(db *gorm.DB) *HazardRepository {
	return &HazardRepository{db: db}
}

func (r *HazardRepository) Save(ctx context.Context, hazard *domain.Hazard) error {
	return r.getDB(ctx).WithContext(ctx).Create(hazard).Error
}

func (r *HazardRepository) Get(ctx context.Context, hazardID string) (*domain.Hazard, error) {
	var hazard domain.Hazard
	err := r.getDB(ctx).WithContext(ctx).Where("hazard_id = ?", hazardID).First(&hazard).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrHazardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hazard, nil
}

// GetForUpdate 行锁读取（SELECT ... FOR UPDATE）。
// 计票、确认计数、终态闩锁都要先拿到这把锁再读改写。
func (r *HazardRepository) GetForUpdate(ctx context.Context, hazardID string) (*domain.Hazard, error) {
	var hazard domain.Hazard
	err := lockForUpdate(r.getDB(ctx).WithContext(ctx)).Where("hazard_id = ?", hazardID).First(&hazard).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrHazardNotFound
	}
	if err != nil {
		return nil, asConcurrency(err)
	}
	return &hazard, nil
}

func (r *HazardRepository) Update(ctx context.Context, hazard *domain.Hazard) error {
	// Updates 跳过零值，这里必须整行落库（计数可以减到 0、resolved_at 可以清空）
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.Hazard{}).
		Where("hazard_id = ?", hazard.HazardID).
		Select("expires_at", "extended_count", "resolved_at", "resolved_by", "resolution_note", "votes_up", "votes_down", "updated_at").
		Updates(map[string]any{
			"expires_at":      hazard.ExpiresAt,
			"extended_count":  hazard.ExtendedCount,
			"resolved_at":     hazard.ResolvedAt,
			"resolved_by":     hazard.ResolvedBy,
			"resolution_note": hazard.ResolutionNote,
			"votes_up":        hazard.VotesUp,
			"votes_down":      hazard.VotesDown,
			"updated_at":      time.Now(),
		}).Error
	return asConcurrency(err)
}

func (r *HazardRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.Hazard, error) {
	var hazards []*domain.Hazard
	err := r.getDB(ctx).WithContext(ctx).
		Where("lifecycle_policy = ?", domain.PolicyAutoExpire).
		Where("resolved_at IS NULL").
		Where("expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&hazards).Error
	if err != nil {
		return nil, err
	}
	return hazards, nil
}

// MarkExpired 条件更新闩上过期终态。WHERE resolved_at IS NULL 保证
// 并发清扫或清扫与惰性检查竞争时恰好一个写入生效；RowsAffected 为 0
// 表示别的实例已经认领，静默跳过。
func (r *HazardRepository) MarkExpired(ctx context.Context, hazardID string, at time.Time) (bool, error) {
	result := r.getDB(ctx).WithContext(ctx).Model(&domain.Hazard{}).
		Where("hazard_id = ?", hazardID).
		Where("resolved_at IS NULL").
		Updates(map[string]any{
			"resolved_at":     at,
			"resolved_by":     "",
			"resolution_note": "expired automatically",
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, asConcurrency(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Transaction 开启事务并把句柄挂到 ctx，嵌套调用复用外层事务
func (r *HazardRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *HazardRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// lockForUpdate 附加 SELECT ... FOR UPDATE。
// sqlite 不支持该语法且本身是单写者，跳过。
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
