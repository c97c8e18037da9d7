// Package store persists the user's watchlist of tickers.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrEmptyTicker is returned when a ticker is blank after trimming.
var ErrEmptyTicker = errors.New("ticker must not be empty")

// Watchlist is a set of tickers. Tickers are stored trimmed and upper-cased,
// each at most once. Removing a ticker that is not present is not an error.
type Watchlist interface {
	Init(ctx context.Context) error
	Add(ctx context.Context, ticker string) error
	Remove(ctx context.Context, ticker string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// NormalizeTicker trims and upper-cases a ticker.
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", ErrEmptyTicker
	}
	return t, nil
}

// Backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config selects and configures a watchlist backend.
type Config struct {
	Backend       string `yaml:"backend"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// Open connects to the configured backend and initializes its schema.
func Open(ctx context.Context, cfg Config) (Watchlist, error) {
	var (
		w   Watchlist
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		w = NewMemoryWatchlist()
	case BackendPostgres:
		w, err = NewPostgresWatchlist(ctx, cfg.DatabaseURL)
	case BackendRedis:
		w, err = NewRedisWatchlist(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown watchlist backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := w.Init(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// MemoryWatchlist keeps tickers in process memory.
type MemoryWatchlist struct {
	mu      sync.RWMutex
	tickers map[string]struct{}
}

// NewMemoryWatchlist creates an empty in-memory watchlist.
func NewMemoryWatchlist() *MemoryWatchlist {
	return &MemoryWatchlist{tickers: make(map[string]struct{})}
}

func (m *MemoryWatchlist) Init(ctx context.Context) error { return nil }

func (m *MemoryWatchlist) Add(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.tickers[t] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *MemoryWatchlist) Remove(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.tickers, t)
	m.mu.Unlock()
	return nil
}

func (m *MemoryWatchlist) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	out := make([]string, 0, len(m.tickers))
	for t := range m.tickers {
		out = append(out, t)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (m *MemoryWatchlist) Close() error { return nil }
