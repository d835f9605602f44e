package domain

import "gorm.io/gorm"

// ResolutionReport 解决上报，每个灾害至多一条（后来者只能确认或质疑）
type ResolutionReport struct {
	gorm.Model
	HazardID    string `gorm:"column:hazard_id;type:varchar(32);uniqueIndex;not null" json:"hazard_id"`
	ReporterID  string `gorm:"column:reporter_id;type:varchar(32);index;not null" json:"reporter_id"`
	Note        string `gorm:"column:note;type:varchar(500);not null" json:"note"`
	EvidenceRef string `gorm:"column:evidence_ref;type:varchar(255)" json:"evidence_ref,omitempty"`
}

func (ResolutionReport) TableName() string {
	return "resolution_reports"
}

// ConfirmationType 表态类型
type ConfirmationType string

const (
	ConfirmationConfirmed ConfirmationType = "confirmed"
	ConfirmationDisputed  ConfirmationType = "disputed"
)

// ResolutionConfirmation 确认/质疑记录，(hazard_id, user_id) 唯一，可改口
type ResolutionConfirmation struct {
	gorm.Model
	HazardID         string           `gorm:"column:hazard_id;type:varchar(32);uniqueIndex:idx_hazard_confirmer;not null" json:"hazard_id"`
	UserID           string           `gorm:"column:user_id;type:varchar(32);uniqueIndex:idx_hazard_confirmer;not null" json:"user_id"`
	ConfirmationType ConfirmationType `gorm:"column:confirmation_type;type:varchar(12);not null" json:"confirmation_type"`
	Note             string           `gorm:"column:note;type:varchar(255)" json:"note,omitempty"`
}

func (ResolutionConfirmation) TableName() string {
	return "resolution_confirmations"
}

// ConfirmationTally 确认/质疑计数
type ConfirmationTally struct {
	Confirmed int64 `json:"confirmed"`
	Disputed  int64 `json:"disputed"`
}

// ThresholdMet 自动解决判据：确认数达阈值且多于质疑数
func (t ConfirmationTally) ThresholdMet(threshold int) bool {
	return t.Confirmed >= int64(threshold) && t.Confirmed > t.Disputed
}
