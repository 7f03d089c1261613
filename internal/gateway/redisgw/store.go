// Package redisgw persists carts as JSON blobs in Redis, one key per owner.
// It doubles as a reference for the migrate contract: union by product id,
// quantities summed on collision.
package redisgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avelinehq/cartside/internal/gateway"
	redisclient "github.com/avelinehq/cartside/pkg/redis"
	"github.com/avelinehq/cartside/pkg/types"
	redislib "github.com/redis/go-redis/v9"
)

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(owner types.OwnerKey) string
}

// Store implements gateway.Gateway on top of Redis.
type Store struct {
	kv    kvStore
	keyer cartKeyer
}

// New builds a redis-backed gateway.
func New(client *redisclient.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{kv: client, keyer: client}, nil
}

type persistedCart struct {
	Items    []types.CartLine `json:"items"`
	Revision int64            `json:"revision"`
	SavedAt  time.Time        `json:"saved_at"`
}

// Load returns the lines stored under the owner key, or nil when absent.
func (s *Store) Load(ctx context.Context, owner types.OwnerKey) ([]types.CartLine, error) {
	raw, err := s.kv.Get(ctx, s.keyer.CartKey(owner))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart %s: %w", owner, err)
	}

	var cart persistedCart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", owner, err)
	}
	return cart.Items, nil
}

// Save replaces the cart stored under the owner key.
func (s *Store) Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error {
	cart := persistedCart{
		Items:    lines,
		Revision: revision,
		SavedAt:  time.Now().UTC(),
	}
	if cart.Items == nil {
		cart.Items = []types.CartLine{}
	}
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", owner, err)
	}
	if err := s.kv.Set(ctx, s.keyer.CartKey(owner), string(raw), 0); err != nil {
		return fmt.Errorf("save cart %s: %w", owner, err)
	}
	return nil
}

// Migrate merges the session cart into the user cart and drops the session
// key. Lines present in both carts keep the session snapshot's price and the
// summed quantity.
func (s *Store) Migrate(ctx context.Context, sessionID, userID string) error {
	sessionOwner := types.SessionOwner(sessionID)
	userOwner := types.UserOwner(userID)

	sessionLines, err := s.Load(ctx, sessionOwner)
	if err != nil {
		return err
	}
	userLines, err := s.Load(ctx, userOwner)
	if err != nil {
		return err
	}

	merged := gateway.MergeLines(sessionLines, userLines)
	if err := s.Save(ctx, userOwner, merged, 0); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, s.keyer.CartKey(sessionOwner)); err != nil {
		return fmt.Errorf("drop session cart %s: %w", sessionOwner, err)
	}
	return nil
}
