package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/GoPolymarket/sxgate/internal/middleware"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "sxgate:idem:"

// RedisIdempotencyStore shares idempotency keys across gateway replicas.
type RedisIdempotencyStore struct {
	client *RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client *RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = middleware.DefaultIdempotencyTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl, prefix: defaultIdempotencyPrefix}
}

// Acquire claims the key with SET NX. When the key exists the stored record
// is returned; a key that expired between the two calls is claimed again.
func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key, fingerprint string) (*middleware.IdempotencyRecord, error) {
	claim := encodeIdemRecord(middleware.IdempotencyRecord{
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
		Processing:  true,
	})
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.Client.SetNX(ctx, s.prefix+key, claim, s.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		raw, err := s.client.Client.Get(ctx, s.prefix+key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return decodeIdemRecord(raw)
	}
	return nil, errors.New("idempotency key churned while acquiring")
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, rec middleware.IdempotencyRecord) error {
	rec.Processing = false
	rec.CreatedAt = time.Now().UTC()
	return s.client.Client.Set(ctx, s.prefix+key, encodeIdemRecord(rec), s.ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Client.Del(ctx, s.prefix+key).Err()
}

// idemWire is the stored JSON; []byte bodies marshal as base64.
type idemWire struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status"`
	Body        []byte `json:"body,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	Processing  bool   `json:"processing"`
}

func encodeIdemRecord(rec middleware.IdempotencyRecord) string {
	data, _ := json.Marshal(idemWire{
		Fingerprint: rec.Fingerprint,
		Status:      rec.Status,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt.Unix(),
		Processing:  rec.Processing,
	})
	return string(data)
}

func decodeIdemRecord(raw string) (*middleware.IdempotencyRecord, error) {
	var wire idemWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, err
	}
	return &middleware.IdempotencyRecord{
		Fingerprint: wire.Fingerprint,
		Status:      wire.Status,
		Body:        wire.Body,
		CreatedAt:   time.Unix(wire.CreatedAt, 0).UTC(),
		Processing:  wire.Processing,
	}, nil
}
