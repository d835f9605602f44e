package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
)

// 每轮扫描的最大条数，剩余的留给下一轮
const sweepBatchSize = 500

// ExpirationSweepService 周期性将到期的 auto_expire 灾害落成 expired 终态。
// 并发扫描安全：MarkExpired 是条件更新，赢者落审计发事件，输者静默跳过。
type ExpirationSweepService struct {
	hazards   domain.HazardRepository
	audit     domain.AuditRepository
	publisher domain.EventPublisher
	readCache domain.HazardReadRepository
	logger    *slog.Logger
}

func NewExpirationSweepService(
	hazards domain.HazardRepository,
	audit domain.AuditRepository,
	publisher domain.EventPublisher,
	readCache domain.HazardReadRepository,
	logger *slog.Logger,
) *ExpirationSweepService {
	return &ExpirationSweepService{
		hazards:   hazards,
		audit:     audit,
		publisher: publisher,
		readCache: readCache,
		logger:    logger,
	}
}

// ExpireOverdueHazards 扫一轮，返回本轮真正落成终态的数量。
// 单条失败只记日志不中断整轮。
func (s *ExpirationSweepService) ExpireOverdueHazards(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.hazards.ListOverdue(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, hazard := range overdue {
		won, err := s.expireOne(ctx, hazard, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire hazard", "hazard_id", hazard.HazardID, "error", err)
			continue
		}
		if won {
			expired++
		}
	}

	if expired > 0 {
		s.logger.InfoContext(ctx, "expiration sweep completed", "scanned", len(overdue), "expired", expired)
	}
	return expired, nil
}

func (s *ExpirationSweepService) expireOne(ctx context.Context, hazard *domain.Hazard, now time.Time) (bool, error) {
	won, err := claimExpiration(ctx, s.hazards, s.audit, s.publisher, hazard, now)
	if err != nil || !won {
		return false, err
	}

	if s.readCache != nil {
		if cacheErr := s.readCache.Delete(ctx, hazard.HazardID); cacheErr != nil {
			s.logger.WarnContext(ctx, "failed to invalidate hazard cache", "hazard_id", hazard.HazardID, "error", cacheErr)
		}
	}
	return true, nil
}

// claimExpiration 在一个事务里条件闩上过期终态，赢者落审计并发集成事件。
// 清扫器与读路径的惰性检查共用这一条认领路径，返回 false 表示别的写者已经落过。
func claimExpiration(
	ctx context.Context,
	hazards domain.HazardRepository,
	audit domain.AuditRepository,
	publisher domain.EventPublisher,
	hazard *domain.Hazard,
	now time.Time,
) (bool, error) {
	expiredAt := now
	if hazard.ExpiresAt != nil {
		expiredAt = *hazard.ExpiresAt
	}

	var won bool
	err := hazards.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		won, err = hazards.MarkExpired(txCtx, hazard.HazardID, expiredAt)
		if err != nil || !won {
			return err
		}

		if err := audit.Append(txCtx, &domain.AuditEntry{
			HazardID:      hazard.HazardID,
			Action:        domain.AuditAutoExpired,
			ActorID:       "", // 系统动作
			PreviousState: domain.Snapshot(hazard, now, false),
			Reason:        "expiration deadline passed",
		}); err != nil {
			return err
		}

		if publisher != nil {
			return publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.HazardExpiredEventType, hazard.HazardID, domain.HazardExpiredEvent{
				HazardID:  hazard.HazardID,
				ExpiredAt: expiredAt,
				Timestamp: now,
			})
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}
