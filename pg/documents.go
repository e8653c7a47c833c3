package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/timescale/TimescaleDB-HybridSearch/internal/textnormalize"
	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

// GetDocumentByID fetches a single document. Returns (nil, nil) when the ID
// is unknown.
func (s *Store) GetDocumentByID(ctx context.Context, id string) (*search.Document, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s d
		WHERE d.id = @id
		LIMIT 1
	`, docColumns, documentsTable)

	doc, err := scanDocument(s.pool.QueryRow(ctx, sql, pgx.NamedArgs{"id": id}))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get document", err)
	}
	return &doc, nil
}

// ListTrapSets returns the distinct evaluation group names, sorted.
func (s *Store) ListTrapSets(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT d.trap_set
		FROM %s d
		WHERE d.trap_set IS NOT NULL
		ORDER BY d.trap_set
	`, documentsTable)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, storageErr("list trap sets", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("list trap sets scan", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list trap sets", err)
	}
	return out, nil
}

// GetTrapQuartet returns all documents of one evaluation group keyed by their
// role (winner, semantic_bait, keyword_bait, temporal_bait).
func (s *Store) GetTrapQuartet(ctx context.Context, trapSet string) (map[string]search.Document, error) {
	if strings.TrimSpace(trapSet) == "" {
		return nil, fmt.Errorf("trap set name is required")
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s d
		WHERE d.trap_set = @trap_set
		ORDER BY d.trap_type
	`, docColumns, documentsTable)

	rows, err := s.pool.Query(ctx, sql, pgx.NamedArgs{"trap_set": trapSet})
	if err != nil {
		return nil, storageErr("get trap quartet", err)
	}
	defer rows.Close()

	out := map[string]search.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, storageErr("get trap quartet scan", err)
		}
		out[doc.TrapType] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get trap quartet", err)
	}
	return out, nil
}

// TypeaheadHit is a title suggestion from the trigram index.
type TypeaheadHit struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Typeahead suggests document titles for a partial query via pg_trgm
// similarity over the heavy-normalized title column. Both sides of the
// comparison are normalized the same way at write and read time.
func (s *Store) Typeahead(ctx context.Context, query string, limit int) ([]TypeaheadHit, error) {
	if limit <= 0 {
		return []TypeaheadHit{}, nil
	}
	q := textnormalize.Heavy(query)
	if q == "" {
		return []TypeaheadHit{}, nil
	}

	sql := fmt.Sprintf(`
		SELECT
			d.id,
			d.title,
			SIMILARITY(d.title_lexeme, @q)::float8 AS score
		FROM %s d
		WHERE d.title_lexeme %% @q
		ORDER BY score DESC, d.id ASC
		LIMIT @limit
	`, documentsTable)

	rows, err := s.pool.Query(ctx, sql, pgx.NamedArgs{"q": q, "limit": limit})
	if err != nil {
		return nil, storageErr("typeahead", err)
	}
	defer rows.Close()

	out := []TypeaheadHit{}
	for rows.Next() {
		var h TypeaheadHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Similarity); err != nil {
			return nil, storageErr("typeahead scan", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("typeahead", err)
	}
	return out, nil
}
