package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/avelinehq/cartside/pkg/redis"
)

// sessionKV is the slice of the redis client the store needs.
type sessionKV interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdentityKey(profile string) string
}

// RedisStore keeps the session key in redis, shared by every process that
// serves the same profile. SetNX makes the first writer win so concurrent
// cold starts converge on one key.
type RedisStore struct {
	kv      sessionKV
	profile string
}

// NewRedisStore binds the store to a redis client and a profile name that
// scopes the key.
func NewRedisStore(client *redisclient.Client, profile string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if profile == "" {
		return nil, fmt.Errorf("profile required")
	}
	return &RedisStore{kv: client, profile: profile}, nil
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	value, err := s.kv.Get(ctx, s.kv.IdentityKey(s.profile))
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session key: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Store(ctx context.Context, key string) (string, error) {
	storageKey := s.kv.IdentityKey(s.profile)
	set, err := s.kv.SetNX(ctx, storageKey, key, 0)
	if err != nil {
		return "", fmt.Errorf("store session key: %w", err)
	}
	if set {
		return key, nil
	}
	winner, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("read winning session key: %w", err)
	}
	return winner, nil
}
