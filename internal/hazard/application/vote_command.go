package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// CastVoteCommand 投票命令
type CastVoteCommand struct {
	HazardID string
	UserID   string
	VoteType domain.VoteType
}

// VoteCommandService 处理投票相关的写操作。
// 计数器只在持有灾害行锁的事务内读改写，改票时两个计数器同事务换算，
// 任何时刻 votes_up - votes_down 都等于派生净票数。
type VoteCommandService struct {
	hazards   domain.HazardRepository
	votes     domain.VoteRepository
	audit     domain.AuditRepository
	trust     domain.TrustRecorder
	readCache domain.HazardReadRepository
	logger    *slog.Logger
}

func NewVoteCommandService(
	hazards domain.HazardRepository,
	votes domain.VoteRepository,
	audit domain.AuditRepository,
	trust domain.TrustRecorder,
	readCache domain.HazardReadRepository,
	logger *slog.Logger,
) *VoteCommandService {
	return &VoteCommandService{
		hazards:   hazards,
		votes:     votes,
		audit:     audit,
		trust:     trust,
		readCache: readCache,
		logger:    logger,
	}
}

// CastVote 投票或改票。
// 同型重复投票是幂等空操作（只动 updated_at，不动计数、不再记积分）；
// 改票在同一事务里减旧计数加新计数。
func (s *VoteCommandService) CastVote(ctx context.Context, cmd CastVoteCommand) error {
	if !cmd.VoteType.Valid() {
		return fmt.Errorf("%w: unknown vote type %q", domain.ErrValidation, cmd.VoteType)
	}

	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, cmd.HazardID)
		if err != nil {
			return err
		}
		if hazard.OwnerID == cmd.UserID {
			return domain.ErrOwnVote
		}

		existing, err := s.votes.Get(txCtx, cmd.HazardID, cmd.UserID)
		switch {
		case errors.Is(err, domain.ErrVoteNotFound):
			return s.castNew(txCtx, hazard, cmd)
		case err != nil:
			return err
		case existing.VoteType == cmd.VoteType:
			// 幂等：touch updated_at，其余不动
			existing.VoteType = cmd.VoteType
			return s.votes.Save(txCtx, existing)
		default:
			return s.switchVote(txCtx, hazard, existing, cmd)
		}
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cmd.HazardID)
	return nil
}

func (s *VoteCommandService) castNew(ctx context.Context, hazard *domain.Hazard, cmd CastVoteCommand) error {
	before := domain.Snapshot(hazard, time.Now(), false)

	if err := s.votes.Save(ctx, &domain.Vote{
		HazardID: cmd.HazardID,
		UserID:   cmd.UserID,
		VoteType: cmd.VoteType,
	}); err != nil {
		return err
	}

	ownerEvent := domain.TrustHazardUpvoted
	if cmd.VoteType == domain.VoteUp {
		hazard.VotesUp++
	} else {
		hazard.VotesDown++
		ownerEvent = domain.TrustHazardDownvoted
	}
	if err := s.hazards.Update(ctx, hazard); err != nil {
		return err
	}

	// 同事务记积分：投票人 vote_cast，业主 hazard_upvoted/hazard_downvoted
	if err := s.trust.Record(ctx, cmd.UserID, domain.TrustVoteCast, "hazard", cmd.HazardID, ""); err != nil {
		return err
	}
	if err := s.trust.Record(ctx, hazard.OwnerID, ownerEvent, "hazard", cmd.HazardID, ""); err != nil {
		return err
	}

	return s.audit.Append(ctx, &domain.AuditEntry{
		HazardID:      cmd.HazardID,
		Action:        domain.AuditVoteCast,
		ActorID:       cmd.UserID,
		PreviousState: before,
		NewState:      domain.Snapshot(hazard, time.Now(), false),
		Reason:        string(cmd.VoteType),
	})
}

func (s *VoteCommandService) switchVote(ctx context.Context, hazard *domain.Hazard, existing *domain.Vote, cmd CastVoteCommand) error {
	before := domain.Snapshot(hazard, time.Now(), false)

	existing.VoteType = cmd.VoteType
	if err := s.votes.Save(ctx, existing); err != nil {
		return err
	}

	// 旧计数减、新计数加，同一条 UPDATE 落库，计数对不上是不可能态
	ownerEvent := domain.TrustHazardUpvoted
	if cmd.VoteType == domain.VoteUp {
		hazard.VotesUp++
		hazard.VotesDown--
	} else {
		hazard.VotesDown++
		hazard.VotesUp--
		ownerEvent = domain.TrustHazardDownvoted
	}
	if err := s.hazards.Update(ctx, hazard); err != nil {
		return err
	}

	// 改票只给业主记新方向的积分；投票人的 vote_cast 首次已记，账本不回滚
	if err := s.trust.Record(ctx, hazard.OwnerID, ownerEvent, "hazard", cmd.HazardID, "vote changed"); err != nil {
		return err
	}

	return s.audit.Append(ctx, &domain.AuditEntry{
		HazardID:      cmd.HazardID,
		Action:        domain.AuditVoteCast,
		ActorID:       cmd.UserID,
		PreviousState: before,
		NewState:      domain.Snapshot(hazard, time.Now(), false),
		Reason:        fmt.Sprintf("changed to %s", cmd.VoteType),
	})
}

// RemoveVote 撤票。撤票只减计数删记录，历史积分不可逆。
func (s *VoteCommandService) RemoveVote(ctx context.Context, hazardID, userID string) error {
	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, hazardID)
		if err != nil {
			return err
		}

		vote, err := s.votes.Get(txCtx, hazardID, userID)
		if err != nil {
			return err
		}

		before := domain.Snapshot(hazard, time.Now(), false)
		if vote.VoteType == domain.VoteUp {
			hazard.VotesUp--
		} else {
			hazard.VotesDown--
		}
		if err := s.votes.Delete(txCtx, hazardID, userID); err != nil {
			return err
		}
		if err := s.hazards.Update(txCtx, hazard); err != nil {
			return err
		}

		return s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID:      hazardID,
			Action:        domain.AuditVoteRemoved,
			ActorID:       userID,
			PreviousState: before,
			NewState:      domain.Snapshot(hazard, time.Now(), false),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, hazardID)
	return nil
}

func (s *VoteCommandService) invalidate(ctx context.Context, hazardID string) {
	if s.readCache == nil {
		return
	}
	if err := s.readCache.Delete(ctx, hazardID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate hazard cache", "hazard_id", hazardID, "error", err)
	}
}
