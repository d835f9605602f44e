package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"gorm.io/gorm"
)

// RecordEventCommand 记账命令
type RecordEventCommand struct {
	UserID      string
	EventType   domain.EventType
	RelatedType string
	RelatedID   string
	Note        string
}

// AdjustScoreCommand 管理员调分命令
type AdjustScoreCommand struct {
	UserID  string
	Delta   int64
	Reason  string
	AdminID string
}

// TrustCommandService 处理信誉分相关的写操作。
// 每次记账都在一个事务内完成 行锁读快照 → 追加账本 → 更新快照，
// 保证快照永远等于账本的派生聚合。
type TrustCommandService struct {
	scores    domain.ScoreRepository
	events    domain.EventRepository
	config    *domain.ConfigCache
	readCache domain.ScoreReadRepository
	publisher domain.EventPublisher
	db        *gorm.DB
	logger    *slog.Logger
}

func NewTrustCommandService(
	scores domain.ScoreRepository,
	events domain.EventRepository,
	config *domain.ConfigCache,
	readCache domain.ScoreReadRepository,
	publisher domain.EventPublisher,
	db *gorm.DB,
	logger *slog.Logger,
) *TrustCommandService {
	return &TrustCommandService{
		scores:    scores,
		events:    events,
		config:    config,
		readCache: readCache,
		publisher: publisher,
		db:        db,
		logger:    logger,
	}
}

// RecordEvent 按配置分值记一笔账。
// 未配置或停用的动作类型按 fail-open 处理：记警告、返回 nil 事件、
// 不让触发方的事务失败（例如计票仍然成立，只是拿不到积分）。
func (s *TrustCommandService) RecordEvent(ctx context.Context, cmd RecordEventCommand) (*domain.TrustScoreEvent, error) {
	points, err := s.config.Lookup(cmd.EventType)
	if errors.Is(err, domain.ErrConfigNotFound) {
		s.logger.WarnContext(ctx, "no active points config for event type, skipping",
			"event_type", cmd.EventType, "user_id", cmd.UserID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.record(ctx, cmd, points)
}

// AdjustScore 管理员手工调分。走同一条记账路径（synthetic 事件类型），
// 因此同样可审计、同样被 0 下限钳制。
func (s *TrustCommandService) AdjustScore(ctx context.Context, cmd AdjustScoreCommand) (*domain.TrustScoreEvent, error) {
	if cmd.AdminID == "" {
		return nil, domain.ErrForbidden
	}
	if cmd.Reason == "" {
		return nil, domain.ErrInvalidEvent
	}
	note := fmt.Sprintf("adjusted by %s: %s", cmd.AdminID, cmd.Reason)
	return s.record(ctx, RecordEventCommand{
		UserID:    cmd.UserID,
		EventType: domain.EventAdminAdjustment,
		Note:      note,
	}, cmd.Delta)
}

// ReloadConfig 刷新分值表内存快照
func (s *TrustCommandService) ReloadConfig(ctx context.Context) error {
	return s.config.Reload(ctx)
}

func (s *TrustCommandService) record(ctx context.Context, cmd RecordEventCommand, points int64) (*domain.TrustScoreEvent, error) {
	var event *domain.TrustScoreEvent

	apply := func(txCtx context.Context) error {
		score, err := s.scores.GetForUpdate(txCtx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("lock trust score: %w", err)
		}

		previous := score.Score
		next := domain.Apply(previous, points)

		event = &domain.TrustScoreEvent{
			EventID:       fmt.Sprintf("TSE-%d", idgen.GenID()),
			UserID:        cmd.UserID,
			EventType:     cmd.EventType,
			PointsChange:  points,
			PreviousScore: previous,
			NewScore:      next,
			RelatedType:   cmd.RelatedType,
			RelatedID:     cmd.RelatedID,
			Note:          cmd.Note,
		}
		if err := s.events.Append(txCtx, event); err != nil {
			return fmt.Errorf("append trust event: %w", err)
		}
		if err := s.scores.UpdateScore(txCtx, cmd.UserID, next); err != nil {
			return fmt.Errorf("update trust score: %w", err)
		}

		if s.publisher != nil {
			tx := contextx.GetTx(txCtx)
			return s.publisher.PublishInTx(txCtx, tx, domain.TrustScoreChangedEventType, cmd.UserID, domain.TrustScoreChangedEvent{
				UserID:       cmd.UserID,
				EventType:    string(cmd.EventType),
				PointsChange: points,
				NewScore:     next,
				Timestamp:    time.Now(),
			})
		}
		return nil
	}

	// 调用方已开事务时挂进去（与触发写同事务），否则自己开
	var err error
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		err = apply(ctx)
	} else {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			return apply(contextx.WithTx(ctx, tx))
		})
	}
	if err != nil {
		return nil, err
	}

	// 读缓存失效，best effort
	if s.readCache != nil {
		if err := s.readCache.Delete(ctx, cmd.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate score cache", "user_id", cmd.UserID, "error", err)
		}
	}
	return event, nil
}
