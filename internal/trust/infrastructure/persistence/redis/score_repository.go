package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

type scoreRedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewScoreRedisRepository(client redis.UniversalClient) domain.ScoreReadRepository {
	return &scoreRedisRepository{
		client: client,
		prefix: "trust:score:",
		ttl:    time.Hour,
	}
}

func (r *scoreRedisRepository) Get(ctx context.Context, userID string) (*domain.TrustScore, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var score domain.TrustScore
	if err := json.Unmarshal(data, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *scoreRedisRepository) Save(ctx context.Context, score *domain.TrustScore) error {
	if score == nil {
		return nil
	}
	data, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(score.UserID), data, r.ttl).Err()
}

func (r *scoreRedisRepository) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *scoreRedisRepository) key(userID string) string {
	return r.prefix + userID
}
