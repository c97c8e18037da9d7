package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresWatchlist stores tickers in the `stocks` table.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS stocks (
//	  ticker TEXT PRIMARY KEY
//	);
type PostgresWatchlist struct {
	pool *pgxpool.Pool
}

// NewPool opens a connection pool for databaseURL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	return pool, nil
}

// NewPostgresWatchlist connects to databaseURL.
func NewPostgresWatchlist(ctx context.Context, databaseURL string) (*PostgresWatchlist, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return NewPostgresWatchlistWithPool(pool), nil
}

// NewPostgresWatchlistWithPool wraps an existing pool.
func NewPostgresWatchlistWithPool(pool *pgxpool.Pool) *PostgresWatchlist {
	return &PostgresWatchlist{pool: pool}
}

// Init creates the stocks table if it does not exist.
func (p *PostgresWatchlist) Init(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS stocks (ticker TEXT PRIMARY KEY)`)
	if err != nil {
		return fmt.Errorf("failed to create stocks table: %w", err)
	}
	return nil
}

func (p *PostgresWatchlist) Add(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `INSERT INTO stocks (ticker) VALUES ($1) ON CONFLICT (ticker) DO NOTHING`, t)
	if err != nil {
		return fmt.Errorf("failed to add %s to watchlist: %w", t, err)
	}
	log.Debug().Str("ticker", t).Int64("inserted", tag.RowsAffected()).Msg("watchlist add")
	return nil
}

func (p *PostgresWatchlist) Remove(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM stocks WHERE ticker = $1`, t); err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", t, err)
	}
	return nil
}

func (p *PostgresWatchlist) List(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT ticker FROM stocks ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (p *PostgresWatchlist) Close() error {
	p.pool.Close()
	return nil
}
