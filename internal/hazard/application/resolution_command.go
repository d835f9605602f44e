package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/contextx"
)

// SubmitReportCommand 解决上报命令
type SubmitReportCommand struct {
	HazardID    string
	ReporterID  string
	Note        string
	EvidenceRef string
}

// ConfirmationCommand 确认/质疑命令
type ConfirmationCommand struct {
	HazardID string
	UserID   string
	Note     string
}

// ResolutionCommandService 处理 user_resolvable 灾害的解决流程。
// 阈值判定与触发它的确认写在同一事务、同一把灾害行锁内完成，
// 两个并发确认同时过线时也只会触发一次解决。
type ResolutionCommandService struct {
	hazards     domain.HazardRepository
	resolutions domain.ResolutionRepository
	audit       domain.AuditRepository
	trust       domain.TrustRecorder
	publisher   domain.EventPublisher
	readCache   domain.HazardReadRepository
	logger      *slog.Logger
}

func NewResolutionCommandService(
	hazards domain.HazardRepository,
	resolutions domain.ResolutionRepository,
	audit domain.AuditRepository,
	trust domain.TrustRecorder,
	publisher domain.EventPublisher,
	readCache domain.HazardReadRepository,
	logger *slog.Logger,
) *ResolutionCommandService {
	return &ResolutionCommandService{
		hazards:     hazards,
		resolutions: resolutions,
		audit:       audit,
		trust:       trust,
		publisher:   publisher,
		readCache:   readCache,
		logger:      logger,
	}
}

// SubmitResolutionReport 首个解决上报。每灾害只允许一条，
// 后来者只能确认或质疑既有上报。
func (s *ResolutionCommandService) SubmitResolutionReport(ctx context.Context, cmd SubmitReportCommand) error {
	if cmd.Note == "" {
		return fmt.Errorf("%w: resolution note is required", domain.ErrValidation)
	}

	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, cmd.HazardID)
		if err != nil {
			return err
		}
		if hazard.Resolved() {
			return domain.ErrAlreadyResolved
		}
		if err := hazard.BeginResolution(txCtx); err != nil {
			return err
		}

		if _, err := s.resolutions.GetReport(txCtx, cmd.HazardID); err == nil {
			return domain.ErrReportExists
		} else if !errors.Is(err, domain.ErrReportNotFound) {
			return err
		}

		before := domain.Snapshot(hazard, time.Now(), false)
		if err := s.resolutions.CreateReport(txCtx, &domain.ResolutionReport{
			HazardID:    cmd.HazardID,
			ReporterID:  cmd.ReporterID,
			Note:        cmd.Note,
			EvidenceRef: cmd.EvidenceRef,
		}); err != nil {
			return err
		}

		if err := s.trust.Record(txCtx, cmd.ReporterID, domain.TrustResolutionReported, "hazard", cmd.HazardID, ""); err != nil {
			return err
		}

		return s.audit.Append(txCtx, &domain.AuditEntry{
			HazardID:      cmd.HazardID,
			Action:        domain.AuditResolutionReported,
			ActorID:       cmd.ReporterID,
			PreviousState: before,
			NewState:      domain.Snapshot(hazard, time.Now(), true),
			Reason:        cmd.Note,
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cmd.HazardID)
	return nil
}

// ConfirmResolution 确认解决。达到阈值且确认多于质疑时自动解决，恰好一次。
func (s *ResolutionCommandService) ConfirmResolution(ctx context.Context, cmd ConfirmationCommand) error {
	return s.upsertConfirmation(ctx, cmd, domain.ConfirmationConfirmed)
}

// DisputeResolution 质疑解决
func (s *ResolutionCommandService) DisputeResolution(ctx context.Context, cmd ConfirmationCommand) error {
	return s.upsertConfirmation(ctx, cmd, domain.ConfirmationDisputed)
}

func (s *ResolutionCommandService) upsertConfirmation(ctx context.Context, cmd ConfirmationCommand, ctype domain.ConfirmationType) error {
	err := s.hazards.Transaction(ctx, func(txCtx context.Context) error {
		hazard, err := s.hazards.GetForUpdate(txCtx, cmd.HazardID)
		if err != nil {
			return err
		}
		if hazard.Resolved() {
			return domain.ErrAlreadyResolved
		}

		report, err := s.resolutions.GetReport(txCtx, cmd.HazardID)
		if errors.Is(err, domain.ErrReportNotFound) {
			return domain.ErrNoOpenReport
		}
		if err != nil {
			return err
		}

		// 首次表态才记积分，改口不重复计
		firstConfirmation := false
		if _, err := s.resolutions.GetConfirmation(txCtx, cmd.HazardID, cmd.UserID); errors.Is(err, domain.ErrConfirmationNotFound) {
			firstConfirmation = true
		} else if err != nil {
			return err
		}

		if err := s.resolutions.UpsertConfirmation(txCtx, &domain.ResolutionConfirmation{
			HazardID:         cmd.HazardID,
			UserID:           cmd.UserID,
			ConfirmationType: ctype,
			Note:             cmd.Note,
		}); err != nil {
			return err
		}

		if firstConfirmation {
			if err := s.trust.Record(txCtx, cmd.UserID, domain.TrustResolutionConfirmed, "hazard", cmd.HazardID, ""); err != nil {
				return err
			}
		}

		// 阈值判定必须与确认写同事务执行，防止两个并发确认都看到
		// 过线前的旧计数、各自触发一次解决
		tally, err := s.resolutions.Tally(txCtx, cmd.HazardID)
		if err != nil {
			return err
		}
		if !tally.ThresholdMet(hazard.ConfirmationThreshold) {
			return nil
		}
		return s.autoResolve(txCtx, hazard, report, tally)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cmd.HazardID)
	return nil
}

// autoResolve 闩上终态并发积分、审计、发集成事件。
// resolved_at 只能在为空时写入，fsm 拒绝重复触发。
func (s *ResolutionCommandService) autoResolve(ctx context.Context, hazard *domain.Hazard, report *domain.ResolutionReport, tally domain.ConfirmationTally) error {
	before := domain.Snapshot(hazard, time.Now(), true)

	if err := hazard.Resolve(ctx, report.ReporterID, report.Note, time.Now()); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return nil // 已被别的确认触发，幂等跳过
		}
		return err
	}
	if err := s.hazards.Update(ctx, hazard); err != nil {
		return err
	}

	// 业主因社区闭环拿参与分
	if err := s.trust.Record(ctx, hazard.OwnerID, domain.TrustResolutionParticipation, "hazard", hazard.HazardID, ""); err != nil {
		return err
	}

	if err := s.audit.Append(ctx, &domain.AuditEntry{
		HazardID:      hazard.HazardID,
		Action:        domain.AuditAutoResolved,
		PreviousState: before,
		NewState:      domain.Snapshot(hazard, time.Now(), false),
		Reason:        fmt.Sprintf("confirmed=%d disputed=%d threshold=%d", tally.Confirmed, tally.Disputed, hazard.ConfirmationThreshold),
	}); err != nil {
		return err
	}

	if s.publisher != nil {
		return s.publisher.PublishInTx(ctx, contextx.GetTx(ctx), domain.HazardResolvedEventType, hazard.HazardID, domain.HazardResolvedEvent{
			HazardID:   hazard.HazardID,
			ResolvedBy: hazard.ResolvedBy,
			Note:       hazard.ResolutionNote,
			Timestamp:  time.Now(),
		})
	}
	return nil
}

func (s *ResolutionCommandService) invalidate(ctx context.Context, hazardID string) {
	if s.readCache == nil {
		return
	}
	if err := s.readCache.Delete(ctx, hazardID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate hazard cache", "hazard_id", hazardID, "error", err)
	}
}
