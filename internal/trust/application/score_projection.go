package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

// ScoreProjectionService 把主库分数回填到 Redis 读模型。
// 由 Kafka 投影消费者在收到 trust.score_changed 后调用。
type ScoreProjectionService struct {
	scores    domain.ScoreRepository
	readCache domain.ScoreReadRepository
	logger    *slog.Logger
}

func NewScoreProjectionService(
	scores domain.ScoreRepository,
	readCache domain.ScoreReadRepository,
	logger *slog.Logger,
) *ScoreProjectionService {
	return &ScoreProjectionService{scores: scores, readCache: readCache, logger: logger}
}

// Refresh 以主库为准刷新单个用户的缓存
func (s *ScoreProjectionService) Refresh(ctx context.Context, userID string) error {
	score, err := s.scores.Get(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return s.readCache.Delete(ctx, userID)
	}
	if err != nil {
		return err
	}
	if err := s.readCache.Save(ctx, score); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh score cache", "user_id", userID, "error", err)
		return err
	}
	return nil
}
