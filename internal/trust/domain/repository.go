package domain

import "context"

// ScoreRepository 信誉分快照仓储接口
type ScoreRepository interface {
	// GetForUpdate 按用户行加锁读取快照，不存在时创建 0 分行。
	// 锁在环境事务内持有，用于防止同一用户的两次记账互相覆盖。
	GetForUpdate(ctx context.Context, userID string) (*TrustScore, error)
	Get(ctx context.Context, userID string) (*TrustScore, error)
	UpdateScore(ctx context.Context, userID string, score int64) error
}

// EventRepository 账本仓储接口，只追加
type EventRepository interface {
	Append(ctx context.Context, event *TrustScoreEvent) error
	History(ctx context.Context, userID string, limit, offset int) ([]*TrustScoreEvent, int64, error)
	BreakdownByType(ctx context.Context, userID string) ([]*Breakdown, error)
	SumPoints(ctx context.Context, userID string) (int64, error)
}

// ConfigRepository 动作分值配置仓储接口
type ConfigRepository interface {
	All(ctx context.Context) ([]*ActionConfig, error)
	Upsert(ctx context.Context, cfg *ActionConfig) error
}

// ScoreReadRepository 分数读缓存（Redis），写失败不影响主库
type ScoreReadRepository interface {
	Get(ctx context.Context, userID string) (*TrustScore, error)
	Save(ctx context.Context, score *TrustScore) error
	Delete(ctx context.Context, userID string) error
}
