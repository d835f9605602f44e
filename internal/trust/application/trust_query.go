package application

import (
	"context"
	"errors"

	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

// TrustQueryService 处理信誉分相关的读操作
type TrustQueryService struct {
	scores    domain.ScoreRepository
	events    domain.EventRepository
	readCache domain.ScoreReadRepository
}

func NewTrustQueryService(
	scores domain.ScoreRepository,
	events domain.EventRepository,
	readCache domain.ScoreReadRepository,
) *TrustQueryService {
	return &TrustQueryService{scores: scores, events: events, readCache: readCache}
}

// GetScore 查询当前分数与等级。没有任何账本记录的用户按 0 分返回。
func (s *TrustQueryService) GetScore(ctx context.Context, userID string) (*ScoreDTO, error) {
	if s.readCache != nil {
		if cached, err := s.readCache.Get(ctx, userID); err == nil && cached != nil {
			return &ScoreDTO{UserID: userID, Score: cached.Score, Tier: domain.TierFor(cached.Score)}, nil
		}
	}

	score, err := s.scores.Get(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return &ScoreDTO{UserID: userID, Score: 0, Tier: domain.TierFor(0)}, nil
	}
	if err != nil {
		return nil, err
	}

	if s.readCache != nil {
		_ = s.readCache.Save(ctx, score) // 回填失败不影响读
	}
	return &ScoreDTO{UserID: userID, Score: score.Score, Tier: domain.TierFor(score.Score)}, nil
}

// GetHistory 账本分页
func (s *TrustQueryService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*EventDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	events, total, err := s.events.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, toEventDTO(e))
	}
	return dtos, total, nil
}

// GetBreakdown 按动作类型汇总，供用户核对自己的分数来源
func (s *TrustQueryService) GetBreakdown(ctx context.Context, userID string) ([]*domain.Breakdown, error) {
	return s.events.BreakdownByType(ctx, userID)
}
