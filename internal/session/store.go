package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"essenza-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultTTL = 14 * 24 * time.Hour

// Entry is one product line of an anonymous cart. Price is the decimal string
// captured when the product was first added.
type Entry struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// CartData maps product id (as a string) to its entry.
type CartData map[string]Entry

type Store interface {
	// GetCart returns an empty CartData when the session has no cart.
	GetCart(ctx context.Context, sessionID string) (CartData, error)
	PutCart(ctx context.Context, sessionID string, data CartData) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// cmdable is the subset of *redis.Client used by the store.
type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisStore struct {
	rdb cmdable
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return newRedisStore(rdb, ttl)
}

func newRedisStore(rdb cmdable, ttl time.Duration) *redisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{rdb: rdb, ttl: ttl}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:cart", sessionID)
}

func (s *redisStore) GetCart(ctx context.Context, sessionID string) (CartData, error) {
	raw, err := s.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CartData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session cart: %w", err)
	}

	data := CartData{}
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt blob is treated as an empty cart so the visitor can start over.
		logger.FromCtx(ctx).Warn("discarding unreadable session cart",
			zap.String("layer", "session"),
			zap.Error(err),
		)
		return CartData{}, nil
	}
	return data, nil
}

func (s *redisStore) PutCart(ctx context.Context, sessionID string, data CartData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, cartKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session cart: %w", err)
	}
	return nil
}

func (s *redisStore) DeleteCart(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session cart: %w", err)
	}
	return nil
}
