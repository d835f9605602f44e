package domain

import (
	"context"
	"time"
)

// 集成事件主题，经 Outbox 投递
const (
	HazardCreatedEventType  = "hazard.created"
	HazardResolvedEventType = "hazard.resolved"
	HazardExpiredEventType  = "hazard.expired"
)

// HazardCreatedEvent 灾害创建事件
type HazardCreatedEvent struct {
	HazardID        string          `json:"hazard_id"`
	OwnerID         string          `json:"owner_id"`
	Category        string          `json:"category"`
	LifecyclePolicy LifecyclePolicy `json:"lifecycle_policy"`
	Timestamp       time.Time       `json:"timestamp"`
}

// HazardResolvedEvent 灾害解决事件（社区确认或管理员强制）
type HazardResolvedEvent struct {
	HazardID   string    `json:"hazard_id"`
	ResolvedBy string    `json:"resolved_by,omitempty"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HazardExpiredEvent 灾害自动过期事件（系统动作，无操作者）
type HazardExpiredEvent struct {
	HazardID  string    `json:"hazard_id"`
	ExpiredAt time.Time `json:"expired_at"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher 集成事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}

// 信誉分动作键，与信誉分服务的分值表对齐
const (
	TrustVoteCast                = "vote_cast"
	TrustHazardUpvoted           = "hazard_upvoted"
	TrustHazardDownvoted         = "hazard_downvoted"
	TrustHazardReported          = "hazard_reported"
	TrustResolutionReported      = "resolution_reported"
	TrustResolutionConfirmed     = "resolution_confirmed"
	TrustResolutionParticipation = "resolution_participation"
	TrustHazardApproved          = "hazard_approved"
	TrustHazardRejected          = "hazard_rejected"
	TrustSpamReport              = "spam_report"
	TrustModeratorAction         = "moderator_action"
)

// TrustRecorder 信誉分记账入口。灾害侧所有积分动作经它进入账本；
// 实现方必须遵守 fail-open：未配置分值时不报错、不中断触发事务。
type TrustRecorder interface {
	Record(ctx context.Context, userID, action, relatedType, relatedID, note string) error
}
