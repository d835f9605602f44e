package domain

import (
	"context"
	"time"
)

// TrustScoreChangedEventType 积分变更集成事件主题
const TrustScoreChangedEventType = "trust.score_changed"

// TrustScoreChangedEvent 积分变更集成事件，经 Outbox 投递，
// 供投影消费者刷新 Redis 读模型
type TrustScoreChangedEvent struct {
	UserID       string    `json:"user_id"`
	EventType    string    `json:"event_type"`
	PointsChange int64     `json:"points_change"`
	NewScore     int64     `json:"new_score"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventPublisher 集成事件发布者接口
type EventPublisher interface {
	// Publish 发布一个普通事件（非事务内）
	Publish(ctx context.Context, topic string, key string, event any) error
	// PublishInTx 在事务中发布事件（Outbox 模式）
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}
