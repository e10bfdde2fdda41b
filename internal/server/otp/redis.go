package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/redis/go-redis/v9"
)

// redisCmdable is the subset of the go-redis client the store uses.
type redisCmdable interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps entries in Redis with a server-side expiry, so pending
// codes survive restarts and are shared between instances.
type RedisStore struct {
	client    redisCmdable
	prefix    string
	retention time.Duration
}

func NewRedisStore(client redisCmdable, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "certhub:otp:", retention: retention}
}

func (s *RedisStore) Put(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", common.ErrPersistence, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, b, s.retention).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", common.ErrPersistence, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", common.ErrPersistence, err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: decode entry: %v", common.ErrPersistence, err)
	}
	return &e, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", common.ErrPersistence, err)
	}
	return nil
}
