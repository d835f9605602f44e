// 包 domain 信誉分服务的领域模型
package domain

import (
	"gorm.io/gorm"
)

// EventType 信誉分动作类型（封闭枚举，新增动作须同时配置分值）
type EventType string

const (
	EventVoteCast                EventType = "vote_cast"
	EventHazardUpvoted           EventType = "hazard_upvoted"
	EventHazardDownvoted         EventType = "hazard_downvoted"
	EventHazardReported          EventType = "hazard_reported"
	EventResolutionReported      EventType = "resolution_reported"
	EventResolutionConfirmed     EventType = "resolution_confirmed"
	EventResolutionParticipation EventType = "resolution_participation"
	EventHazardApproved          EventType = "hazard_approved"
	EventHazardRejected          EventType = "hazard_rejected"
	EventSpamReport              EventType = "spam_report"
	EventModeratorAction         EventType = "moderator_action"
	// EventAdminAdjustment 管理员手工调分，走同一条账本路径以保证可审计
	EventAdminAdjustment EventType = "admin_adjustment"
)

// TrustScore 用户信誉分快照
// 总分是账本（TrustScoreEvent）的派生聚合，永远非负
type TrustScore struct {
	gorm.Model
	UserID string `gorm:"column:user_id;type:varchar(32);uniqueIndex;not null" json:"user_id"`
	Score  int64  `gorm:"column:score;default:0;not null" json:"score"`
}

func (TrustScore) TableName() string {
	return "trust_scores"
}

// TrustScoreEvent 信誉分账本条目，只追加不修改
// 这是信誉体系的事实记录（system of record），快照只是缓存
type TrustScoreEvent struct {
	gorm.Model
	EventID       string    `gorm:"column:event_id;type:varchar(32);uniqueIndex;not null" json:"event_id"`
	UserID        string    `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	EventType     EventType `gorm:"column:event_type;type:varchar(40);index;not null" json:"event_type"`
	PointsChange  int64     `gorm:"column:points_change;not null" json:"points_change"`
	PreviousScore int64     `gorm:"column:previous_score;not null" json:"previous_score"`
	NewScore      int64     `gorm:"column:new_score;not null" json:"new_score"`
	RelatedType   string    `gorm:"column:related_type;type:varchar(20)" json:"related_type,omitempty"`
	RelatedID     string    `gorm:"column:related_id;type:varchar(32);index" json:"related_id,omitempty"`
	Note          string    `gorm:"column:note;type:varchar(255)" json:"note,omitempty"`
}

func (TrustScoreEvent) TableName() string {
	return "trust_score_events"
}

// ActionConfig 动作分值配置，仅管理员可改
type ActionConfig struct {
	gorm.Model
	ActionKey   EventType `gorm:"column:action_key;type:varchar(40);uniqueIndex;not null" json:"action_key"`
	Points      int64     `gorm:"column:points;not null" json:"points"`
	Active      bool      `gorm:"column:active;default:true;not null" json:"active"`
	Description string    `gorm:"column:description;type:varchar(255)" json:"description"`
}

func (ActionConfig) TableName() string {
	return "trust_score_configs"
}

// Apply 基线分数上应用一次变更，下限钳制到 0，无上限
func Apply(previous, points int64) int64 {
	next := previous + points
	if next < 0 {
		return 0
	}
	return next
}

// Tier 信誉等级，仅用于展示，不参与任何权限判定
type Tier string

const (
	TierNewUser         Tier = "New User"
	TierContributor     Tier = "Contributor"
	TierTrusted         Tier = "Trusted"
	TierCommunityLeader Tier = "Community Leader"
	TierExpert          Tier = "Expert"
	TierGuardian        Tier = "Guardian"
)

// TierFor 按固定分段计算等级
func TierFor(score int64) Tier {
	switch {
	case score < 50:
		return TierNewUser
	case score < 200:
		return TierContributor
	case score < 500:
		return TierTrusted
	case score < 1000:
		return TierCommunityLeader
	case score < 2000:
		return TierExpert
	default:
		return TierGuardian
	}
}

// Breakdown 按动作类型汇总的分值明细
type Breakdown struct {
	EventType   EventType `json:"event_type"`
	EventCount  int64     `json:"event_count"`
	TotalPoints int64     `json:"total_points"`
}

// DefaultActionConfigs 初始分值表，开发环境建表时播种
func DefaultActionConfigs() []ActionConfig {
	return []ActionConfig{
		{ActionKey: EventVoteCast, Points: 2, Active: true, Description: "cast a vote on a hazard"},
		{ActionKey: EventHazardUpvoted, Points: 2, Active: true, Description: "own hazard received an upvote"},
		{ActionKey: EventHazardDownvoted, Points: -1, Active: true, Description: "own hazard received a downvote"},
		{ActionKey: EventHazardReported, Points: 10, Active: true, Description: "reported a new hazard"},
		{ActionKey: EventResolutionReported, Points: 3, Active: true, Description: "reported a hazard as resolved"},
		{ActionKey: EventResolutionConfirmed, Points: 2, Active: true, Description: "confirmed a resolution report"},
		{ActionKey: EventResolutionParticipation, Points: 5, Active: true, Description: "own hazard resolved by the community"},
		{ActionKey: EventHazardApproved, Points: 5, Active: true, Description: "hazard passed moderation"},
		{ActionKey: EventHazardRejected, Points: -5, Active: true, Description: "hazard rejected by moderation"},
		{ActionKey: EventSpamReport, Points: -20, Active: true, Description: "hazard flagged as spam"},
		{ActionKey: EventModeratorAction, Points: 1, Active: true, Description: "performed a moderation action"},
		{ActionKey: EventAdminAdjustment, Points: 0, Active: true, Description: "manual administrative adjustment"},
	}
}
