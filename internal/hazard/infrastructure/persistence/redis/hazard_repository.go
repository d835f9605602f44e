package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// hazardRedisRepository 灾害读缓存。状态是惰性推导的，
// 这里只缓存聚合本体，TTL 压短避免计票展示太陈旧。
type hazardRedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewHazardRedisRepository(client redis.UniversalClient) domain.HazardReadRepository {
	return &hazardRedisRepository{
		client: client,
		prefix: "hazard:",
		ttl:    5 * time.Minute,
	}
}

func (r *hazardRedisRepository) Get(ctx context.Context, hazardID string) (*domain.Hazard, error) {
	data, err := r.client.Get(ctx, r.key(hazardID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var hazard domain.Hazard
	if err := json.Unmarshal(data, &hazard); err != nil {
		return nil, err
	}
	return &hazard, nil
}

func (r *hazardRedisRepository) Save(ctx context.Context, hazard *domain.Hazard) error {
	if hazard == nil {
		return nil
	}
	data, err := json.Marshal(hazard)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(hazard.HazardID), data, r.ttl).Err()
}

func (r *hazardRedisRepository) Delete(ctx context.Context, hazardID string) error {
	return r.client.Del(ctx, r.key(hazardID)).Err()
}

func (r *hazardRedisRepository) key(id string) string {
	return r.prefix + id
}
