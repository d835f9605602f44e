package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// HazardQueryService 灾害读侧。聚合走 Redis cache-aside，
// 状态一律读取时派生，缓存里只存聚合本身。
// 读到越期未闩的 auto_expire 灾害时就地认领终态，清扫器只兜底没人读的行。
type HazardQueryService struct {
	hazards     domain.HazardRepository
	votes       domain.VoteRepository
	resolutions domain.ResolutionRepository
	audit       domain.AuditRepository
	publisher   domain.EventPublisher
	readCache   domain.HazardReadRepository
	logger      *slog.Logger
}

func NewHazardQueryService(
	hazards domain.HazardRepository,
	votes domain.VoteRepository,
	resolutions domain.ResolutionRepository,
	audit domain.AuditRepository,
	publisher domain.EventPublisher,
	readCache domain.HazardReadRepository,
	logger *slog.Logger,
) *HazardQueryService {
	return &HazardQueryService{
		hazards:     hazards,
		votes:       votes,
		resolutions: resolutions,
		audit:       audit,
		publisher:   publisher,
		readCache:   readCache,
		logger:      logger,
	}
}

// GetHazard 查询灾害详情
func (s *HazardQueryService) GetHazard(ctx context.Context, hazardID string) (*HazardDTO, error) {
	hazard, err := s.loadHazard(ctx, hazardID)
	if err != nil {
		return nil, err
	}
	openReport, err := s.hasOpenReport(ctx, hazardID)
	if err != nil {
		return nil, err
	}
	return toHazardDTO(hazard, time.Now(), openReport), nil
}

// GetExpirationStatus 查询生命周期详情，含确认计票
func (s *HazardQueryService) GetExpirationStatus(ctx context.Context, hazardID string) (*ExpirationStatusDTO, error) {
	hazard, err := s.loadHazard(ctx, hazardID)
	if err != nil {
		return nil, err
	}
	openReport, err := s.hasOpenReport(ctx, hazardID)
	if err != nil {
		return nil, err
	}

	dto := &ExpirationStatusDTO{
		HazardID:        hazard.HazardID,
		LifecyclePolicy: hazard.LifecyclePolicy,
		Status:          hazard.StatusAt(time.Now(), openReport),
		ExpiresAt:       hazard.ExpiresAt,
		ExtendedCount:   hazard.ExtendedCount,
		HasOpenReport:   openReport,
		ResolvedAt:      hazard.ResolvedAt,
		ResolvedBy:      hazard.ResolvedBy,
	}
	if hazard.SeasonalMonths != 0 {
		dto.SeasonalMonths = hazard.SeasonalMonths.Months()
	}
	if hazard.LifecyclePolicy == domain.PolicyUserResolvable {
		dto.Threshold = hazard.ConfirmationThreshold
		tally, err := s.resolutions.Tally(ctx, hazardID)
		if err != nil {
			return nil, err
		}
		dto.Tally = tally
	}
	return dto, nil
}

// GetVoteStatus 查询某用户对某灾害的投票状态。
// 业主或已了结的灾害都不可投。
func (s *HazardQueryService) GetVoteStatus(ctx context.Context, hazardID, userID string) (*domain.VoteStatus, error) {
	hazard, err := s.loadHazard(ctx, hazardID)
	if err != nil {
		return nil, err
	}

	status := &domain.VoteStatus{
		Eligible: userID != hazard.OwnerID && !hazard.Resolved(),
	}
	vote, err := s.votes.Get(ctx, hazardID, userID)
	switch {
	case err == nil:
		status.HasVoted = true
		status.VoteType = vote.VoteType
	case errors.Is(err, domain.ErrVoteNotFound):
	default:
		return nil, err
	}
	return status, nil
}

// AuditTrailDTO 审计列表视图
type AuditTrailDTO struct {
	Entries []*domain.AuditEntry `json:"entries"`
	Total   int64                `json:"total"`
}

// GetAuditTrail 查询灾害的审计轨迹，新在前
func (s *HazardQueryService) GetAuditTrail(ctx context.Context, hazardID string, limit, offset int) (*AuditTrailDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.audit.List(ctx, hazardID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &AuditTrailDTO{Entries: entries, Total: total}, nil
}

// loadHazard 先查缓存，未命中回源主库并回填
func (s *HazardQueryService) loadHazard(ctx context.Context, hazardID string) (*domain.Hazard, error) {
	var hazard *domain.Hazard
	fromCache := false
	if s.readCache != nil {
		cached, err := s.readCache.Get(ctx, hazardID)
		if err != nil {
			s.logger.WarnContext(ctx, "hazard cache read failed", "hazard_id", hazardID, "error", err)
		} else if cached != nil {
			hazard = cached
			fromCache = true
		}
	}
	if hazard == nil {
		loaded, err := s.hazards.Get(ctx, hazardID)
		if err != nil {
			return nil, err
		}
		hazard = loaded
	}

	hazard, latched := s.latchExpired(ctx, hazard)

	if s.readCache != nil && (!fromCache || latched) {
		if err := s.readCache.Save(ctx, hazard); err != nil {
			s.logger.WarnContext(ctx, "hazard cache backfill failed", "hazard_id", hazardID, "error", err)
		}
	}
	return hazard, nil
}

// latchExpired 惰性落过期终态：越过 deadline 的 auto_expire 灾害在首次被读到时
// 就认领 resolved_at，与清扫器走同一条件更新；输掉竞争则回源取赢者写入的行。
// 认领失败只降级为陈旧读，派生状态仍然正确。
func (s *HazardQueryService) latchExpired(ctx context.Context, hazard *domain.Hazard) (*domain.Hazard, bool) {
	now := time.Now()
	if hazard.LifecyclePolicy != domain.PolicyAutoExpire || hazard.Resolved() ||
		hazard.ExpiresAt == nil || now.Before(*hazard.ExpiresAt) {
		return hazard, false
	}

	if _, err := claimExpiration(ctx, s.hazards, s.audit, s.publisher, hazard, now); err != nil {
		s.logger.WarnContext(ctx, "lazy expiration latch failed", "hazard_id", hazard.HazardID, "error", err)
		return hazard, false
	}

	fresh, err := s.hazards.Get(ctx, hazard.HazardID)
	if err != nil {
		s.logger.WarnContext(ctx, "reload after expiration latch failed", "hazard_id", hazard.HazardID, "error", err)
		return hazard, false
	}
	return fresh, true
}

func (s *HazardQueryService) hasOpenReport(ctx context.Context, hazardID string) (bool, error) {
	_, err := s.resolutions.GetReport(ctx, hazardID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrReportNotFound):
		return false, nil
	default:
		return false, err
	}
}
