package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the set holding watchlist tickers.
const DefaultRedisKey = "fairvalue:watchlist"

// RedisWatchlist stores tickers as members of one Redis set.
type RedisWatchlist struct {
	client *redis.Client
	key    string
}

// NewRedisWatchlist connects to addr and verifies the connection.
func NewRedisWatchlist(ctx context.Context, addr, password string, db int, key string) (*RedisWatchlist, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisWatchlistWithClient(rdb, key), nil
}

// NewRedisWatchlistWithClient wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisWatchlistWithClient(client *redis.Client, key string) *RedisWatchlist {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWatchlist{client: client, key: key}
}

func (r *RedisWatchlist) Init(ctx context.Context) error { return nil }

func (r *RedisWatchlist) Add(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.key, t).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (r *RedisWatchlist) Remove(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if err := r.client.SRem(ctx, r.key, t).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

func (r *RedisWatchlist) List(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

func (r *RedisWatchlist) Close() error {
	return r.client.Close()
}
