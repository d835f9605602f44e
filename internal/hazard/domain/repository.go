package domain

import (
	"context"
	"time"
)

// HazardRepository 灾害聚合仓储接口
type HazardRepository interface {
	Save(ctx context.Context, hazard *Hazard) error
	Get(ctx context.Context, hazardID string) (*Hazard, error)
	// GetForUpdate 行锁读取，计数器与终态变更必须走这里
	GetForUpdate(ctx context.Context, hazardID string) (*Hazard, error)
	// Update 持久化聚合的可变字段（计数、过期、终态闩锁）
	Update(ctx context.Context, hazard *Hazard) error
	// ListOverdue 找出到期未了结的 auto_expire 灾害
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*Hazard, error)
	// MarkExpired 条件过期：resolved_at 仍为空才落锁，返回是否本次生效。
	// 并发清扫下同一行只有一个实例能成功。
	MarkExpired(ctx context.Context, hazardID string, at time.Time) (bool, error)
	// Transaction 开启事务并把句柄挂到 ctx
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// VoteRepository 投票仓储接口
type VoteRepository interface {
	Get(ctx context.Context, hazardID, userID string) (*Vote, error)
	Save(ctx context.Context, vote *Vote) error
	Delete(ctx context.Context, hazardID, userID string) error
}

// ResolutionRepository 解决上报与确认仓储接口
type ResolutionRepository interface {
	GetReport(ctx context.Context, hazardID string) (*ResolutionReport, error)
	CreateReport(ctx context.Context, report *ResolutionReport) error
	GetConfirmation(ctx context.Context, hazardID, userID string) (*ResolutionConfirmation, error)
	UpsertConfirmation(ctx context.Context, confirmation *ResolutionConfirmation) error
	// Tally 统计确认/质疑数。必须与触发它的确认写在同一事务内执行。
	Tally(ctx context.Context, hazardID string) (ConfirmationTally, error)
}

// AuditRepository 审计仓储接口，只追加
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, hazardID string, limit, offset int) ([]*AuditEntry, int64, error)
}

// HazardReadRepository 灾害读缓存（Redis），写失败不影响主库
type HazardReadRepository interface {
	Get(ctx context.Context, hazardID string) (*Hazard, error)
	Save(ctx context.Context, hazard *Hazard) error
	Delete(ctx context.Context, hazardID string) error
}

// SettingRepository 类目默认配置仓储接口
type SettingRepository interface {
	GetByCategory(ctx context.Context, category string) (*ExpirationSetting, error)
	All(ctx context.Context) ([]*ExpirationSetting, error)
	Upsert(ctx context.Context, setting *ExpirationSetting) error
}
