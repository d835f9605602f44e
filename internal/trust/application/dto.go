package application

import (
	"time"

	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

// ScoreDTO 信誉分视图
type ScoreDTO struct {
	UserID string      `json:"user_id"`
	Score  int64       `json:"score"`
	Tier   domain.Tier `json:"tier"`
}

// EventDTO 账本条目视图
type EventDTO struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	PointsChange  int64     `json:"points_change"`
	PreviousScore int64     `json:"previous_score"`
	NewScore      int64     `json:"new_score"`
	RelatedType   string    `json:"related_type,omitempty"`
	RelatedID     string    `json:"related_id,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toEventDTO(e *domain.TrustScoreEvent) *EventDTO {
	return &EventDTO{
		EventID:       e.EventID,
		EventType:     string(e.EventType),
		PointsChange:  e.PointsChange,
		PreviousScore: e.PreviousScore,
		NewScore:      e.NewScore,
		RelatedType:   e.RelatedType,
		RelatedID:     e.RelatedID,
		Note:          e.Note,
		CreatedAt:     e.CreatedAt,
	}
}
