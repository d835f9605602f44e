package domain

import "gorm.io/gorm"

// VoteType 票型
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown
}

// Vote 投票记录，(hazard_id, user_id) 唯一。
// 业主不得给自己的灾害投票；改票在同一事务里换计数器。
type Vote struct {
	gorm.Model
	HazardID string   `gorm:"column:hazard_id;type:varchar(32);uniqueIndex:idx_hazard_voter;not null" json:"hazard_id"`
	UserID   string   `gorm:"column:user_id;type:varchar(32);uniqueIndex:idx_hazard_voter;not null" json:"user_id"`
	VoteType VoteType `gorm:"column:vote_type;type:varchar(8);not null" json:"vote_type"`
}

func (Vote) TableName() string {
	return "hazard_votes"
}

// VoteStatus 读侧视图：是否投过、票型、是否有资格投
type VoteStatus struct {
	HasVoted bool     `json:"has_voted"`
	VoteType VoteType `json:"vote_type,omitempty"`
	Eligible bool     `json:"eligible"`
}
