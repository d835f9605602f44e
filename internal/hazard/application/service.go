package application

import (
	"context"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// HazardService 灾害上下文门面，聚合命令侧与查询侧
type HazardService struct {
	hazardCmd     *HazardCommandService
	voteCmd       *VoteCommandService
	resolutionCmd *ResolutionCommandService
	query         *HazardQueryService
}

func NewHazardService(
	hazardCmd *HazardCommandService,
	voteCmd *VoteCommandService,
	resolutionCmd *ResolutionCommandService,
	query *HazardQueryService,
) *HazardService {
	return &HazardService{
		hazardCmd:     hazardCmd,
		voteCmd:       voteCmd,
		resolutionCmd: resolutionCmd,
		query:         query,
	}
}

func (s *HazardService) CreateHazard(ctx context.Context, cmd CreateHazardCommand) (*HazardDTO, error) {
	return s.hazardCmd.CreateHazard(ctx, cmd)
}

func (s *HazardService) ExtendExpiration(ctx context.Context, hazardID string, additionalHours int, actorID string) error {
	return s.hazardCmd.ExtendExpiration(ctx, hazardID, additionalHours, actorID)
}

func (s *HazardService) ForceExpire(ctx context.Context, hazardID, actorID, reason string) error {
	return s.hazardCmd.ForceExpire(ctx, hazardID, actorID, reason)
}

func (s *HazardService) Restore(ctx context.Context, hazardID, actorID, reason string) error {
	return s.hazardCmd.Restore(ctx, hazardID, actorID, reason)
}

func (s *HazardService) ApplyModerationDecision(ctx context.Context, cmd ModerationDecisionCommand) error {
	return s.hazardCmd.ApplyModerationDecision(ctx, cmd)
}

func (s *HazardService) CastVote(ctx context.Context, cmd CastVoteCommand) error {
	return s.voteCmd.CastVote(ctx, cmd)
}

func (s *HazardService) RemoveVote(ctx context.Context, hazardID, userID string) error {
	return s.voteCmd.RemoveVote(ctx, hazardID, userID)
}

func (s *HazardService) SubmitResolutionReport(ctx context.Context, cmd SubmitReportCommand) error {
	return s.resolutionCmd.SubmitResolutionReport(ctx, cmd)
}

func (s *HazardService) ConfirmResolution(ctx context.Context, cmd ConfirmationCommand) error {
	return s.resolutionCmd.ConfirmResolution(ctx, cmd)
}

func (s *HazardService) DisputeResolution(ctx context.Context, cmd ConfirmationCommand) error {
	return s.resolutionCmd.DisputeResolution(ctx, cmd)
}

func (s *HazardService) GetHazard(ctx context.Context, hazardID string) (*HazardDTO, error) {
	return s.query.GetHazard(ctx, hazardID)
}

func (s *HazardService) GetExpirationStatus(ctx context.Context, hazardID string) (*ExpirationStatusDTO, error) {
	return s.query.GetExpirationStatus(ctx, hazardID)
}

func (s *HazardService) GetVoteStatus(ctx context.Context, hazardID, userID string) (*domain.VoteStatus, error) {
	return s.query.GetVoteStatus(ctx, hazardID, userID)
}

func (s *HazardService) GetAuditTrail(ctx context.Context, hazardID string, limit, offset int) (*AuditTrailDTO, error) {
	return s.query.GetAuditTrail(ctx, hazardID, limit, offset)
}
