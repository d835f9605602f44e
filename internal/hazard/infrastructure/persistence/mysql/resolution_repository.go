package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResolutionRepository 解决上报与确认仓储
type ResolutionRepository struct {
	db *gorm.DB
}

func NewResolutionRepository(db *gorm.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

func (r *ResolutionRepository) GetReport(ctx context.Context, hazardID string) (*domain.ResolutionReport, error) {
	var report domain.ResolutionReport
	err := r.getDB(ctx).WithContext(ctx).Where("hazard_id = ?", hazardID).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// CreateReport 靠 hazard_id 唯一索引保证每灾害至多一条上报
func (r *ResolutionRepository) CreateReport(ctx context.Context, report *domain.ResolutionReport) error {
	err := r.getDB(ctx).WithContext(ctx).Create(report).Error
	if err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKey(err)) {
		return domain.ErrReportExists
	}
	return asConcurrency(err)
}

func (r *ResolutionRepository) GetConfirmation(ctx context.Context, hazardID, userID string) (*domain.ResolutionConfirmation, error) {
	var confirmation domain.ResolutionConfirmation
	err := r.getDB(ctx).WithContext(ctx).
		Where("hazard_id = ? AND user_id = ?", hazardID, userID).
		First(&confirmation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrConfirmationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// UpsertConfirmation 每用户一条表态，可在 confirmed/disputed 间改口
func (r *ResolutionRepository) UpsertConfirmation(ctx context.Context, confirmation *domain.ResolutionConfirmation) error {
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hazard_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"confirmation_type", "note", "updated_at"}),
	}).Create(confirmation).Error
	return asConcurrency(err)
}

// Tally 统计确认/质疑数。调用方保证与触发写同事务、同把灾害行锁。
func (r *ResolutionRepository) Tally(ctx context.Context, hazardID string) (domain.ConfirmationTally, error) {
	var tally domain.ConfirmationTally
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.ResolutionConfirmation{}).
		Select(
			"COUNT(CASE WHEN confirmation_type = ? THEN 1 END) AS confirmed, COUNT(CASE WHEN confirmation_type = ? THEN 1 END) AS disputed",
			domain.ConfirmationConfirmed, domain.ConfirmationDisputed,
		).
		Where("hazard_id = ?", hazardID).
		Scan(&tally).Error
	if err != nil {
		return domain.ConfirmationTally{}, asConcurrency(err)
	}
	return tally, nil
}

func (r *ResolutionRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
