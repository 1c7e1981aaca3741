package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/pregate/internal/models"
)

const keyPrefix = "pregate:session:"

// RedisStore keeps session bindings in Redis so that any instance can score a session issued
// by another one.
type RedisStore struct {
	client *redis.Client
}

// Dial connects and pings. The caller owns the returned client through Close.
func Dial(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: rdb}, nil
}

func (r *RedisStore) Bind(ctx context.Context, b *models.SessionBinding, ttl time.Duration) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode session binding: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+b.SessionID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Consume reads and deletes the binding in one GETDEL round trip.
func (r *RedisStore) Consume(ctx context.Context, sessionID string) (*models.SessionBinding, error) {
	data, err := r.client.GetDel(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel: %w", err)
	}
	var b models.SessionBinding
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode session binding: %w", err)
	}
	return &b, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
