// Package hybridsearch wires the hybrid retrieval engine to a TimescaleDB
// documents table: cosine KNN over pgvector embeddings and weighted full-text
// search, fused by reciprocal rank fusion.
package hybridsearch

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/timescale/TimescaleDB-HybridSearch/pg"
	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

// Options configures Open. The database URL is passed explicitly; there is
// no ambient connection-string global anywhere in this module.
type Options struct {
	DatabaseURL string
	MaxConns    int32

	// Engine tuning; zero values take the engine defaults.
	Dimensions     int
	CandidateLimit int
	RRFK           int

	Logger *zap.Logger
}

// Client bundles the connection pool, the storage collaborator, and the
// engine built on top of it.
type Client struct {
	Pool   *pgxpool.Pool
	Store  *pg.Store
	Engine *search.Engine
}

// Open connects to the database and assembles a ready-to-query Client.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if opts.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	poolCfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", search.ErrStorageUnavailable, err)
	}

	store, err := pg.NewStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	engine, err := search.NewEngine(store, search.Options{
		Dimensions:     opts.Dimensions,
		CandidateLimit: opts.CandidateLimit,
		RRFK:           opts.RRFK,
		Logger:         opts.Logger,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Client{Pool: pool, Store: store, Engine: engine}, nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Typeahead suggests document titles for a partial query.
func (c *Client) Typeahead(ctx context.Context, query string, limit int) ([]pg.TypeaheadHit, error) {
	return c.Store.Typeahead(ctx, query, limit)
}
