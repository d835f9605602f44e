package application

import (
	"context"

	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

// TrustService 作为信誉分服务操作的门面。
type TrustService struct {
	Command *TrustCommandService
	Query   *TrustQueryService
}

func NewTrustService(command *TrustCommandService, query *TrustQueryService) *TrustService {
	return &TrustService{Command: command, Query: query}
}

// --- 写操作（委托给 Command） ---

func (s *TrustService) RecordEvent(ctx context.Context, cmd RecordEventCommand) (*domain.TrustScoreEvent, error) {
	return s.Command.RecordEvent(ctx, cmd)
}

func (s *TrustService) AdjustScore(ctx context.Context, cmd AdjustScoreCommand) (*domain.TrustScoreEvent, error) {
	return s.Command.AdjustScore(ctx, cmd)
}

func (s *TrustService) ReloadConfig(ctx context.Context) error {
	return s.Command.ReloadConfig(ctx)
}

// --- 读操作（委托给 Query） ---

func (s *TrustService) GetScore(ctx context.Context, userID string) (*ScoreDTO, error) {
	return s.Query.GetScore(ctx, userID)
}

func (s *TrustService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*EventDTO, int64, error) {
	return s.Query.GetHistory(ctx, userID, limit, offset)
}

func (s *TrustService) GetBreakdown(ctx context.Context, userID string) ([]*domain.Breakdown, error) {
	return s.Query.GetBreakdown(ctx, userID)
}
