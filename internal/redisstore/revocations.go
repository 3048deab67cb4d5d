// Package redisstore keeps the token revocation list the REST layer writes on logout.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "revoked_jti"

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Revocations struct {
	rdb    *redis.Client
	prefix string
}

// Connect connects to redis and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*Revocations, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return New(rdb, cfg.Prefix), nil
}

func New(rdb *redis.Client, prefix string) *Revocations {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Revocations{rdb: rdb, prefix: prefix}
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n == 1, nil
}

// Revoke marks jti as revoked until ttl passes (ttl 0 = forever).
func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.key(jti), 1, ttl).Err()
}

func (r *Revocations) Close() error { return r.rdb.Close() }

func (r *Revocations) key(jti string) string { return r.prefix + ":" + jti }
