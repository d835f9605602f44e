package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository 投票仓储
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) Get(ctx context.Context, hazardID, userID string) (*domain.Vote, error) {
	var vote domain.Vote
	err := r.getDB(ctx).WithContext(ctx).
		Where("hazard_id = ? AND user_id = ?", hazardID, userID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrVoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// Save upsert 到 (hazard_id, user_id) 唯一键上，改票即覆盖票型
func (r *VoteRepository) Save(ctx context.Context, vote *domain.Vote) error {
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hazard_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vote_type", "updated_at"}),
	}).Create(vote).Error
	return asConcurrency(err)
}

func (r *VoteRepository) Delete(ctx context.Context, hazardID, userID string) error {
	result := r.getDB(ctx).WithContext(ctx).
		Where("hazard_id = ? AND user_id = ?", hazardID, userID).
		Delete(&domain.Vote{})
	if result.Error != nil {
		return asConcurrency(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrVoteNotFound
	}
	return nil
}

func (r *VoteRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
