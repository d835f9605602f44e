package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/hazardwatch/internal/hazard/application"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// ModerationDecisionTopic 外部审核流下发结论的主题
const ModerationDecisionTopic = "moderation.decision"

// moderationDecisionPayload 审核结论消息体
type moderationDecisionPayload struct {
	HazardID    string `json:"hazard_id"`
	Decision    string `json:"decision"`
	ModeratorID string `json:"moderator_id"`
}

// ModerationHandler 消费审核结论，折算成业主与审核员的信誉分动作。
// 坏消息（解析失败、未知灾害）记日志后吞掉，避免卡死分区。
type ModerationHandler struct {
	svc    *application.HazardService
	logger *slog.Logger
}

func NewModerationHandler(svc *application.HazardService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{svc: svc, logger: logger}
}

func (h *ModerationHandler) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case ModerationDecisionTopic:
		var payload moderationDecisionPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal moderation decision", "error", err)
			return nil
		}
		err := h.svc.ApplyModerationDecision(ctx, application.ModerationDecisionCommand{
			HazardID:    payload.HazardID,
			Decision:    payload.Decision,
			ModeratorID: payload.ModeratorID,
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrHazardNotFound), errors.Is(err, domain.ErrValidation):
			h.logger.WarnContext(ctx, "dropping unprocessable moderation decision",
				"hazard_id", payload.HazardID, "decision", payload.Decision, "error", err)
			return nil
		default:
			return err
		}
	default:
		h.logger.WarnContext(ctx, "unknown moderation topic", "topic", msg.Topic)
		return nil
	}
}
