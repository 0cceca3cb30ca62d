// Package redis backs the blinding-counter and restore-cursor KV with Redis.
// Counters are tiny and hot; keeping them out of the record store lets the
// per-keyset lock sequence reads and writes without SQL round trips.
package redis

import (
	"context"
	"fmt"

	"nutpay/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	log.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Redis connection established")
	return client, nil
}

// CounterKV implements ports.CounterRepository on Redis.
type CounterKV struct {
	client *goredis.Client
	prefix string
}

// NewCounterKV creates the Redis-backed counter store.
func NewCounterKV(client *goredis.Client) *CounterKV {
	return &CounterKV{
		client: client,
		prefix: "nutpay:",
	}
}

// Get reads a counter value. A missing key reports ok=false.
func (s *CounterKV) Get(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis counter get: %w", err)
	}
	return val, true, nil
}

// Put writes a counter value. No expiry: counters outlive sessions.
func (s *CounterKV) Put(ctx context.Context, key string, value int64) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis counter put: %w", err)
	}
	return nil
}
