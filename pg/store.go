// Package pg implements the engine's storage collaborator over a TimescaleDB
// documents table with pgvector and full-text extensions.
package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

const documentsTable = "documents"

// docColumns is the metadata projection shared by every document fetch.
const docColumns = `
	d.id,
	d.title,
	d.body,
	COALESCE(d.category, ''),
	COALESCE(d.version, ''),
	COALESCE(d.tags, '{}'::text[]),
	COALESCE(d.is_deprecated, FALSE),
	COALESCE(d.deprecation_note, ''),
	d.created_at,
	d.published_date,
	COALESCE(d.trap_set, ''),
	COALESCE(d.trap_type, '')`

// Store runs ranked retrieval and metadata lookups against the documents
// table. The table is read-only from the store's point of view; provisioning
// lives in restore.go.
type Store struct {
	pool *pgxpool.Pool
}

var _ search.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", search.ErrStorageUnavailable, op, err)
}

// windowPredicate appends the recency filter for a validated window. The
// interval value is bound as a parameter; only ParseTimeWindow output ever
// reaches it.
func windowPredicate(where string, args pgx.NamedArgs, window *search.TimeWindow) string {
	if window == nil {
		return where
	}
	args["window"] = window.Interval()
	pred := "d.published_date >= now() - @window::interval"
	if where == "" {
		return "WHERE " + pred
	}
	return where + " AND " + pred
}

// NearestNeighbors returns the k documents closest to vec under cosine
// distance, ascending. The DiskANN/HNSW index makes this approximate but
// stable for a static dataset; equal distances break by document ID.
func (s *Store) NearestNeighbors(ctx context.Context, vec []float32, k int, window *search.TimeWindow) ([]search.VectorHit, error) {
	if k <= 0 || len(vec) == 0 {
		return []search.VectorHit{}, nil
	}

	args := pgx.NamedArgs{
		"vec":   pgvector.NewVector(vec),
		"limit": k,
	}
	where := windowPredicate("", args, window)

	sql := fmt.Sprintf(`
		SELECT
			d.id,
			(d.embedding <=> @vec::vector)::float8 AS distance
		FROM %s d
		%s
		ORDER BY d.embedding <=> @vec::vector, d.id ASC
		LIMIT @limit
	`, documentsTable, where)

	rows, err := s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, storageErr("nearest neighbors", err)
	}
	defer rows.Close()

	out := []search.VectorHit{}
	for rows.Next() {
		var h search.VectorHit
		if err := rows.Scan(&h.ID, &h.Distance); err != nil {
			return nil, storageErr("nearest neighbors scan", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("nearest neighbors", err)
	}
	return out, nil
}

// LexicalMatch ranks documents matching the websearch-syntax query (implicit
// AND, quoted phrases, -term exclusion) by ts_rank over the weighted
// search_vector column. Documents matching no term are excluded by @@, so an
// empty result is the natural no-match answer.
func (s *Store) LexicalMatch(ctx context.Context, query string, k int, window *search.TimeWindow) ([]search.LexicalHit, error) {
	if k <= 0 {
		return []search.LexicalHit{}, nil
	}
	q := strings.Join(strings.Fields(strings.TrimSpace(query)), " ")
	if q == "" {
		return []search.LexicalHit{}, nil
	}

	args := pgx.NamedArgs{
		"q":     q,
		"limit": k,
	}
	where := windowPredicate("WHERE d.search_vector @@ tsq.query", args, window)

	sql := fmt.Sprintf(`
		WITH tsq AS (
			SELECT websearch_to_tsquery('english', @q) AS query
		)
		SELECT
			d.id,
			ts_rank(d.search_vector, tsq.query)::float8 AS relevance
		FROM tsq, %s d
		%s
		ORDER BY relevance DESC, d.id ASC
		LIMIT @limit
	`, documentsTable, where)

	rows, err := s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, storageErr("lexical match", err)
	}
	defer rows.Close()

	out := []search.LexicalHit{}
	for rows.Next() {
		var h search.LexicalHit
		if err := rows.Scan(&h.ID, &h.Relevance); err != nil {
			return nil, storageErr("lexical match scan", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("lexical match", err)
	}
	return out, nil
}

// FetchDocuments hydrates metadata for a batch of IDs. Missing IDs are simply
// absent from the returned map.
func (s *Store) FetchDocuments(ctx context.Context, ids []string) (map[string]search.Document, error) {
	out := make(map[string]search.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s d
		WHERE d.id = ANY(@ids::text[])
	`, docColumns, documentsTable)

	rows, err := s.pool.Query(ctx, sql, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, storageErr("fetch documents", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, storageErr("fetch documents scan", err)
		}
		out[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("fetch documents", err)
	}
	return out, nil
}

func scanDocument(row pgx.Row) (search.Document, error) {
	var doc search.Document
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Body,
		&doc.Category,
		&doc.Version,
		&doc.Tags,
		&doc.IsDeprecated,
		&doc.DeprecationNote,
		&doc.CreatedAt,
		&doc.PublishedDate,
		&doc.TrapSet,
		&doc.TrapType,
	)
	return doc, err
}
