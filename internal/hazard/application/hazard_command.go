package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
)

// CreateHazardCommand 建灾害命令。策略与参数缺省时取类目默认配置。
type CreateHazardCommand struct {
	OwnerID         string
	Title           string
	Category        string
	Severity        int
	LifecyclePolicy domain.LifecyclePolicy // 可空
	AutoExpireHours int                    // auto_expire，可空
	SeasonalMonths  []int                  // seasonal，可空
	Threshold       int                    // user_resolvable，可空
}

// ModerationDecisionCommand 审核结论回调命令（外部审核流下发）
type ModerationDecisionCommand struct {
	HazardID    string
	Decision    string // approve / reject / spam
	ModeratorID string
}

// HazardCommandService 处理灾害生命周期相关的写操作
type HazardCommandService struct {
	hazards   domain.HazardRepository
	settings  domain.SettingRepository
	audit     domain.AuditRepository
	trust     domain.TrustRecorder
	publisher domain.EventPublisher
	readCache domain.HazardReadRepository
	logger    *slog.Logger
}

func NewHazardCommandService(
	hazards domain.HazardRepository,
	settings domain.SettingRepository,
	audit domain.AuditRepository,
	trust domain.TrustRecorder,
	publisher domain.EventPublisher,
	readCache domain.HazardReadRepository,
	logger *slog.Logger,
) *HazardCommandService {
	return &HazardCommandService{
		hazards:   hazards,
		settings:  settings,
		audit:     audit,
		trust:     trust,
		publisher: publisher,
		readCache: readCache,
		logger:    logger,
	}
}

// CreateHazard 建灾害。类目默认配置只在这一刻生效，之后改配置不回溯。
func (s *HazardCommandService) CreateHazard(ctx context.Context, cmd CreateHazardCommand) (*HazardDTO, error) {
	if cmd.OwnerID == "" || cmd.Title == "" || cmd.Category == "" {
		return nil, fmt.Errorf("%w: owner, title and category are required", domain.ErrValidation)
	}

	hazard, err := s.buildHazard(ctx, cmd)
	if err != nil {
		return nil, err
	}

	err = s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.hazards.Save(txCtx, hazard); err != nil {
			return err
		}
		if err := s.trust.Record(txCtx, cmd.OwnerID, domain.TrustHazardReported, "hazard", hazard.HazardID, ""); err != nil {
			return err
		}
		if err := s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID: hazard.HazardID,
			Action:   domain.AuditHazardCreated,
			ActorID:  cmd.OwnerID,
			NewState: domain.Snapshot(hazard, time.Now(), false),
			Reason:   string(hazard.LifecyclePolicy),
		}); err != nil {
			return err
		}
		if s.publisher != nil {
			return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.HazardCreatedEventType, hazard.HazardID, domain.HazardCreatedEvent{
				HazardID:        hazard.HazardID,
				OwnerID:         hazard.OwnerID,
				Category:        hazard.Category,
				LifecyclePolicy: hazard.LifecyclePolicy,
				Timestamp:       time.Now(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toHazardDTO(hazard, time.Now(), false), nil
}

// buildHazard 合并显式参数与类目默认，产出通过校验的聚合
func (s *HazardCommandService) buildHazard(ctx context.Context, cmd CreateHazardCommand) (*domain.Hazard, error) {
	setting, err := s.settings.GetByCategory(ctx, cmd.Category)
	if err != nil {
		return nil, err
	}

	policy := cmd.LifecyclePolicy
	if policy == "" {
		if setting != nil {
			policy = setting.DefaultPolicy
		} else {
			policy = domain.PolicyUserResolvable
		}
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: unknown lifecycle policy %q", domain.ErrValidation, policy)
	}

	hazard := &domain.Hazard{
		HazardID:              fmt.Sprintf("HZD-%d", idgen.GenID()),
		OwnerID:               cmd.OwnerID,
		Title:                 cmd.Title,
		Category:              cmd.Category,
		Severity:              cmd.Severity,
		LifecyclePolicy:       policy,
		ConfirmationThreshold: domain.DefaultConfirmationThreshold,
	}
	if hazard.Severity <= 0 {
		hazard.Severity = 1
	}

	switch policy {
	case domain.PolicyAutoExpire:
		hours := cmd.AutoExpireHours
		if hours <= 0 && setting != nil {
			hours = setting.AutoExpireHours
		}
		if hours <= 0 {
			return nil, fmt.Errorf("%w: auto_expire requires a duration", domain.ErrValidation)
		}
		expires := time.Now().Add(time.Duration(hours) * time.Hour)
		hazard.ExpiresAt = &expires
	case domain.PolicySeasonal:
		months := cmd.SeasonalMonths
		if len(months) == 0 && setting != nil {
			hazard.SeasonalMonths = setting.SeasonalMonths
		} else {
			set, err := domain.NewMonthSet(months)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid seasonal months", domain.ErrValidation)
			}
			hazard.SeasonalMonths = set
		}
		if hazard.SeasonalMonths == 0 {
			return nil, fmt.Errorf("%w: seasonal requires at least one month", domain.ErrValidation)
		}
	case domain.PolicyUserResolvable:
		if cmd.Threshold > 0 {
			hazard.ConfirmationThreshold = cmd.Threshold
		} else if setting != nil && setting.ConfirmationThreshold > 0 {
			hazard.ConfirmationThreshold = setting.ConfirmationThreshold
		}
	}

	if err := hazard.Validate(); err != nil {
		return nil, err
	}
	return hazard, nil
}

// ExtendExpiration 延期。次数不限，每次都留审计。
func (s *HazardCommandService) ExtendExpiration(ctx context.Context, hazardID string, additionalHours int, actorID string) error {
	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, hazardID)
		if err != nil {
			return err
		}

		before := domain.Snapshot(hazard, time.Now(), false)
		if err := hazard.Extend(additionalHours); err != nil {
			return err
		}
		if err := s.hazards.Update(txCtx, hazard); err != nil {
			return err
		}

		return s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID:      hazardID,
			Action:        domain.AuditExpirationExtended,
			ActorID:       actorID,
			PreviousState: before,
			NewState:      domain.Snapshot(hazard, time.Now(), false),
			Reason:        fmt.Sprintf("extended by %dh", additionalHours),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, hazardID)
	return nil
}

// ForceExpire 管理员强制关闭，任何策略可用
func (s *HazardCommandService) ForceExpire(ctx context.Context, hazardID, actorID, reason string) error {
	if actorID == "" {
		return domain.ErrForbidden
	}

	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, hazardID)
		if err != nil {
			return err
		}

		before := domain.Snapshot(hazard, time.Now(), false)
		if err := hazard.ForceResolve(txCtx, actorID, reason, time.Now()); err != nil {
			return err
		}
		if err := s.hazards.Update(txCtx, hazard); err != nil {
			return err
		}

		if err := s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID:      hazardID,
			Action:        domain.AuditForceExpired,
			ActorID:       actorID,
			PreviousState: before,
			NewState:      domain.Snapshot(hazard, time.Now(), false),
			Reason:        reason,
		}); err != nil {
			return err
		}

		if s.publisher != nil {
			return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.HazardResolvedEventType, hazardID, domain.HazardResolvedEvent{
				HazardID:   hazardID,
				ResolvedBy: actorID,
				Note:       reason,
				Timestamp:  time.Now(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, hazardID)
	return nil
}

// Restore 管理员恢复。这是唯一能清除终态闩锁的路径，必留审计。
func (s *HazardCommandService) Restore(ctx context.Context, hazardID, actorID, reason string) error {
	if actorID == "" {
		return domain.ErrForbidden
	}

	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, hazardID)
		if err != nil {
			return err
		}

		before := domain.Snapshot(hazard, time.Now(), false)
		if err := hazard.Restore(txCtx); err != nil {
			return err
		}
		if err := s.hazards.Update(txCtx, hazard); err != nil {
			return err
		}

		return s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID:      hazardID,
			Action:        domain.AuditRestored,
			ActorID:       actorID,
			PreviousState: before,
			NewState:      domain.Snapshot(hazard, time.Now(), false),
			Reason:        reason,
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, hazardID)
	return nil
}

// ApplyModerationDecision 消化外部审核流的结论：
// 给业主记 hazard_approved / hazard_rejected / spam_report，
// 给审核员记 moderator_action，并落审计。
func (s *HazardCommandService) ApplyModerationDecision(ctx context.Context, cmd ModerationDecisionCommand) error {
	var ownerEvent string
	switch cmd.Decision {
	case "approve":
		ownerEvent = domain.TrustHazardApproved
	case "reject":
		ownerEvent = domain.TrustHazardRejected
	case "spam":
		ownerEvent = domain.TrustSpamReport
	default:
		return fmt.Errorf("%w: unknown moderation decision %q", domain.ErrValidation, cmd.Decision)
	}

	return s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.Get(txCtx, cmd.HazardID)
		if err != nil {
			return err
		}

		if err := s.trust.Record(txCtx, hazard.OwnerID, ownerEvent, "hazard", cmd.HazardID, cmd.Decision); err != nil {
			return err
		}
		if err := s.trust.Record(txCtx, cmd.ModeratorID, domain.TrustModeratorAction, "hazard", cmd.HazardID, cmd.Decision); err != nil {
			return err
		}

		return s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID: cmd.HazardID,
			Action:   domain.AuditModerationDecision,
			ActorID:  cmd.ModeratorID,
			Reason:   cmd.Decision,
		})
	})
}

func (s *HazardCommandService) invalidate(ctx context.Context, hazardID string) {
	if s.readCache == nil {
		return
	}
	if err := s.readCache.Delete(ctx, hazardID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate hazard cache", "hazard_id", hazardID, "error", err)
	}
}
