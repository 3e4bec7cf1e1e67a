package userdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "roster:userdata:"

// minRedisTTL keeps already stale entries around briefly. Freshness is
// always decided from the envelope, the TTL only reclaims space.
const minRedisTTL = time.Second

// RedisStore keeps one session's envelope under a Redis key.
type RedisStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

// NewRedisStore returns the store for sessionID.
func NewRedisStore(client redis.Cmdable, sessionID string) *RedisStore {
	return &RedisStore{client: client, key: RedisKey(sessionID), now: time.Now}
}

// RedisStoreFactory opens RedisStores on client.
func RedisStoreFactory(client redis.Cmdable) StoreFactory {
	return func(sessionID string) (Store, error) {
		if sessionID == "" {
			return nil, ErrInvalidSessionID
		}
		return NewRedisStore(client, sessionID), nil
	}
}

// RedisKey is the key that holds sessionID's entry.
func RedisKey(sessionID string) string { return redisKeyPrefix + sessionID }

func (s *RedisStore) Get(ctx context.Context) (*Envelope, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeEnvelope(data)
}

func (s *RedisStore) Set(ctx context.Context, env *Envelope) error {
	data, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	ttl := env.ExpiresTime().Sub(s.now())
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
