package mysql

import (
	"context"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

// AuditRepository 审计仓储，只追加
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return r.getDB(ctx).WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) List(ctx context.Context, hazardID string, limit, offset int) ([]*domain.AuditEntry, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.AuditEntry{}).Where("hazard_id = ?", hazardID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.AuditEntry
	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *AuditRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
