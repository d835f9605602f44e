package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// 审计动作
const (
	AuditHazardCreated      = "hazard_created"
	AuditVoteCast           = "vote_cast"
	AuditVoteRemoved        = "vote_removed"
	AuditResolutionReported = "resolution_reported"
	AuditAutoResolved       = "auto_resolved"
	AuditAutoExpired        = "auto_expired"
	AuditExpirationExtended = "expiration_extended"
	AuditForceExpired       = "force_expired"
	AuditRestored           = "restored"
	AuditModerationDecision = "moderation_decision"
)

// AuditEntry 状态变更审计，只追加。ActorID 为空表示系统动作。
type AuditEntry struct {
	gorm.Model
	HazardID      string `gorm:"column:hazard_id;type:varchar(32);index;not null" json:"hazard_id"`
	Action        string `gorm:"column:action;type:varchar(40);index;not null" json:"action"`
	ActorID       string `gorm:"column:actor_id;type:varchar(32)" json:"actor_id,omitempty"`
	PreviousState string `gorm:"column:previous_state;type:text" json:"previous_state,omitempty"`
	NewState      string `gorm:"column:new_state;type:text" json:"new_state,omitempty"`
	Reason        string `gorm:"column:reason;type:varchar(500)" json:"reason,omitempty"`
}

func (AuditEntry) TableName() string {
	return "hazard_audit_log"
}

// stateSnapshot 审计里存的灾害快照字段
type stateSnapshot struct {
	Status        Status     `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ExtendedCount int        `json:"extended_count"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy    string     `json:"resolved_by,omitempty"`
	VotesUp       int64      `json:"votes_up"`
	VotesDown     int64      `json:"votes_down"`
}

// Snapshot 序列化灾害当前状态，写进审计条目
func Snapshot(h *Hazard, at time.Time, openReport bool) string {
	if h == nil {
		return ""
	}
	data, err := json.Marshal(stateSnapshot{
		Status:        h.StatusAt(at, openReport),
		ExpiresAt:     h.ExpiresAt,
		ExtendedCount: h.ExtendedCount,
		ResolvedAt:    h.ResolvedAt,
		ResolvedBy:    h.ResolvedBy,
		VotesUp:       h.VotesUp,
		VotesDown:     h.VotesDown,
	})
	if err != nil {
		return ""
	}
	return string(data)
}
