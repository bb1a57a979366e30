package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// usageTTL outlives one UTC day so late reads near midnight still see totals.
const usageTTL = 48 * time.Hour

// RedisUsageRepo keeps per-account daily payload counts and nominal volume,
// shared across gateway replicas.
type RedisUsageRepo struct {
	client *RedisClient
	prefix string
	now    func() time.Time
}

func NewRedisUsageRepo(client *RedisClient, prefix string) *RedisUsageRepo {
	if prefix == "" {
		prefix = "sxgate:usage"
	}
	return &RedisUsageRepo{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisUsageRepo) GetDailyUsage(ctx context.Context, accountID string) (int, decimal.Decimal, error) {
	keyVol, keyCount := r.keys(accountID)

	pipe := r.client.Client.Pipeline()
	volCmd := pipe.Get(ctx, keyVol)
	countCmd := pipe.Get(ctx, keyCount)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, decimal.Zero, err
	}

	volume := decimal.Zero
	if raw, err := volCmd.Result(); err == nil {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("usage volume %q: %w", raw, err)
		}
		volume = v
	}
	count, err := countCmd.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, decimal.Zero, err
	}
	return count, volume, nil
}

func (r *RedisUsageRepo) AddDailyUsage(ctx context.Context, accountID string, payloads int, volume decimal.Decimal) error {
	keyVol, keyCount := r.keys(accountID)

	pipe := r.client.Client.Pipeline()
	vol, _ := volume.Float64()
	pipe.IncrByFloat(ctx, keyVol, vol)
	pipe.IncrBy(ctx, keyCount, int64(payloads))
	pipe.Expire(ctx, keyVol, usageTTL)
	pipe.Expire(ctx, keyCount, usageTTL)

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisUsageRepo) keys(accountID string) (string, string) {
	day := r.now().UTC().Format("2006-01-02")
	base := fmt.Sprintf("%s:%s:%s", r.prefix, accountID, day)
	return base + ":volume", base + ":count"
}
