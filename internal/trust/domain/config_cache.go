package domain

import (
	"context"
	"sync"
	"sync/atomic"
)

// ConfigCache 动作分值表的内存快照。
// 记账路径每次读它而不是查库；管理员改表后调用 Reload 刷新。
type ConfigCache struct {
	repo    ConfigRepository
	mu      sync.RWMutex
	points  map[EventType]int64
	active  map[EventType]bool
	version atomic.Int64
}

func NewConfigCache(repo ConfigRepository) *ConfigCache {
	return &ConfigCache{
		repo:   repo,
		points: make(map[EventType]int64),
		active: make(map[EventType]bool),
	}
}

// Reload 重新加载全表并替换快照
func (c *ConfigCache) Reload(ctx context.Context) error {
	configs, err := c.repo.All(ctx)
	if err != nil {
		return err
	}
	points := make(map[EventType]int64, len(configs))
	active := make(map[EventType]bool, len(configs))
	for _, cfg := range configs {
		points[cfg.ActionKey] = cfg.Points
		active[cfg.ActionKey] = cfg.Active
	}
	c.mu.Lock()
	c.points = points
	c.active = active
	c.mu.Unlock()
	c.version.Add(1)
	return nil
}

// Lookup 返回动作分值。未配置或停用时返回 ErrConfigNotFound，
// 调用方按 fail-open 处理（记警告、不记账、不失败）。
func (c *ConfigCache) Lookup(eventType EventType) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	points, ok := c.points[eventType]
	if !ok || !c.active[eventType] {
		return 0, ErrConfigNotFound
	}
	return points, nil
}

// Version 快照版本号，每次 Reload 递增
func (c *ConfigCache) Version() int64 {
	return c.version.Load()
}
