package application

import (
	"time"

	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// HazardDTO 灾害视图，状态与净票数都是读取时派生的
type HazardDTO struct {
	HazardID        string                 `json:"hazard_id"`
	OwnerID         string                 `json:"owner_id"`
	Title           string                 `json:"title"`
	Category        string                 `json:"category"`
	Severity        int                    `json:"severity"`
	LifecyclePolicy domain.LifecyclePolicy `json:"lifecycle_policy"`
	Status          domain.Status          `json:"status"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	ExtendedCount   int                    `json:"extended_count"`
	SeasonalMonths  []int                  `json:"seasonal_months,omitempty"`
	ResolvedAt      *time.Time             `json:"resolved_at,omitempty"`
	ResolvedBy      string                 `json:"resolved_by,omitempty"`
	ResolutionNote  string                 `json:"resolution_note,omitempty"`
	VotesUp         int64                  `json:"votes_up"`
	VotesDown       int64                  `json:"votes_down"`
	VoteScore       int64                  `json:"vote_score"`
	CreatedAt       time.Time              `json:"created_at"`
}

func toHazardDTO(h *domain.Hazard, at time.Time, openReport bool) *HazardDTO {
	dto := &HazardDTO{
		HazardID:        h.HazardID,
		OwnerID:         h.OwnerID,
		Title:           h.Title,
		Category:        h.Category,
		Severity:        h.Severity,
		LifecyclePolicy: h.LifecyclePolicy,
		Status:          h.StatusAt(at, openReport),
		ExpiresAt:       h.ExpiresAt,
		ExtendedCount:   h.ExtendedCount,
		ResolvedAt:      h.ResolvedAt,
		ResolvedBy:      h.ResolvedBy,
		ResolutionNote:  h.ResolutionNote,
		VotesUp:         h.VotesUp,
		VotesDown:       h.VotesDown,
		VoteScore:       h.VoteScore(),
		CreatedAt:       h.CreatedAt,
	}
	if h.SeasonalMonths != 0 {
		dto.SeasonalMonths = h.SeasonalMonths.Months()
	}
	return dto
}

// ExpirationStatusDTO 生命周期详情视图
type ExpirationStatusDTO struct {
	HazardID        string                   `json:"hazard_id"`
	LifecyclePolicy domain.LifecyclePolicy   `json:"lifecycle_policy"`
	Status          domain.Status            `json:"status"`
	ExpiresAt       *time.Time               `json:"expires_at,omitempty"`
	ExtendedCount   int                      `json:"extended_count"`
	SeasonalMonths  []int                    `json:"seasonal_months,omitempty"`
	Threshold       int                      `json:"confirmation_threshold,omitempty"`
	Tally           domain.ConfirmationTally `json:"tally"`
	HasOpenReport   bool                     `json:"has_open_report"`
	ResolvedAt      *time.Time               `json:"resolved_at,omitempty"`
	ResolvedBy      string                   `json:"resolved_by,omitempty"`
}
