package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/hazardwatch/internal/trust/application"
	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

// ScoreProjectionHandler 消费积分变更事件，刷新 Redis 读模型
type ScoreProjectionHandler struct {
	projector *application.ScoreProjectionService
	logger    *slog.Logger
}

func NewScoreProjectionHandler(projector *application.ScoreProjectionService, logger *slog.Logger) *ScoreProjectionHandler {
	return &ScoreProjectionHandler{projector: projector, logger: logger}
}

func (h *ScoreProjectionHandler) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case domain.TrustScoreChangedEventType:
		var payload domain.TrustScoreChangedEvent
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal score event", "error", err)
			return err
		}
		if payload.UserID == "" {
			return nil
		}
		return h.projector.Refresh(ctx, payload.UserID)
	default:
		h.logger.WarnContext(ctx, "unknown trust event topic", "topic", msg.Topic)
		return nil
	}
}
