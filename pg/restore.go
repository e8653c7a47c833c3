package pg

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/timescale/TimescaleDB-HybridSearch/internal/textnormalize"
)

// Restorer provisions the demo dataset: schema, bulk load, hypertable
// conversion, indexes, and the relative published_date refresh that keeps
// time-windowed demos valid indefinitely. It is a one-time tool, separate
// from the read-only Store.
type Restorer struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewRestorer(pool *pgxpool.Pool, log *zap.Logger) (*Restorer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Restorer{pool: pool, log: log}, nil
}

// Extensions reports which of the required extensions are installed.
type Extensions struct {
	TimescaleDB bool
	Vector      bool
	VectorScale bool
}

func (r *Restorer) CheckExtensions(ctx context.Context) (Extensions, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT extname
		FROM pg_extension
		WHERE extname IN ('timescaledb', 'vector', 'vectorscale')
	`)
	if err != nil {
		return Extensions{}, fmt.Errorf("check extensions: %w", err)
	}
	defer rows.Close()

	var ext Extensions
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Extensions{}, fmt.Errorf("check extensions: %w", err)
		}
		switch name {
		case "timescaledb":
			ext.TimescaleDB = true
		case "vector":
			ext.Vector = true
		case "vectorscale":
			ext.VectorScale = true
		}
	}
	return ext, rows.Err()
}

func (r *Restorer) DropExisting(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DROP TABLE IF EXISTS documents CASCADE`); err != nil {
		return fmt.Errorf("drop documents: %w", err)
	}
	return nil
}

// EnsureSchema creates the documents table. The weighted tsvector is a
// generated column so it is always a pure function of title and body; the
// trigram title_lexeme column is backfilled in Go after load.
func (r *Restorer) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			category TEXT,
			version TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			published_date TIMESTAMPTZ,
			is_deprecated BOOLEAN DEFAULT FALSE,
			deprecation_note TEXT,
			tags TEXT[],
			embedding VECTOR(768),
			trap_set TEXT,
			trap_type TEXT,
			title_lexeme TEXT,
			search_vector TSVECTOR GENERATED ALWAYS AS (
				setweight(to_tsvector('english', COALESCE(title, '')), 'A') ||
				setweight(to_tsvector('english', COALESCE(body, '')), 'B')
			) STORED
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ImportCSV bulk-loads the dataset via COPY. The column list excludes the
// generated tsvector and the Go-maintained title_lexeme.
func (r *Restorer) ImportCSV(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Conn().PgConn().CopyFrom(ctx, f, `
		COPY documents (
			id, title, body, category, version,
			created_at, published_date, is_deprecated, deprecation_note,
			tags, embedding, trap_set, trap_type
		) FROM STDIN WITH (FORMAT CSV, HEADER true)
	`)
	if err != nil {
		return 0, fmt.Errorf("copy csv: %w", err)
	}
	r.log.Info("csv imported", zap.Int64("rows", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// BackfillTitleLexemes heavy-normalizes every title into title_lexeme for the
// trigram typeahead path. Batched through unnest so one statement covers the
// whole table.
func (r *Restorer) BackfillTitleLexemes(ctx context.Context) error {
	rows, err := r.pool.Query(ctx, `SELECT id, title FROM documents`)
	if err != nil {
		return fmt.Errorf("read titles: %w", err)
	}
	defer rows.Close()

	titles := map[string]string{}
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return fmt.Errorf("read titles: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read titles: %w", err)
	}
	if len(titles) == 0 {
		return nil
	}

	ids := make([]string, 0, len(titles))
	for id := range titles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lexemes := make([]string, len(ids))
	for i, id := range ids {
		lexemes[i] = textnormalize.Heavy(titles[id])
	}

	_, err = r.pool.Exec(ctx, `
		WITH rows AS (
			SELECT
				unnest($1::text[]) AS id,
				unnest($2::text[]) AS lexeme
		)
		UPDATE documents d
		SET title_lexeme = rows.lexeme
		FROM rows
		WHERE d.id = rows.id
	`, ids, lexemes)
	if err != nil {
		return fmt.Errorf("backfill title lexemes: %w", err)
	}
	return nil
}

// ConvertToHypertable partitions documents on created_at with 6-month
// chunks. A failure is logged and tolerated so the restore also works on
// plain Postgres.
func (r *Restorer) ConvertToHypertable(ctx context.Context) error {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'documents'
	`).Scan(&count)
	if err == nil && count > 0 {
		r.log.Info("documents is already a hypertable")
		return nil
	}

	_, err = r.pool.Exec(ctx, `
		SELECT create_hypertable(
			'documents',
			'created_at',
			chunk_time_interval => INTERVAL '6 months',
			migrate_data => TRUE,
			if_not_exists => TRUE
		)
	`)
	if err != nil {
		r.log.Warn("hypertable conversion skipped", zap.Error(err))
		return nil
	}
	r.log.Info("converted documents to hypertable", zap.String("chunk_interval", "6 months"))
	return nil
}

// EnsureIndexes builds the vector ANN index (DiskANN when vectorscale is
// installed, cosine HNSW otherwise), the GIN index over the weighted
// tsvector, and the trigram index over title_lexeme.
func (r *Restorer) EnsureIndexes(ctx context.Context, ext Extensions) error {
	annIdx := `
		CREATE INDEX IF NOT EXISTS documents_embedding_idx
		ON documents USING diskann (embedding)
	`
	if !ext.VectorScale {
		annIdx = `
			CREATE INDEX IF NOT EXISTS documents_embedding_idx
			ON documents USING hnsw (embedding vector_cosine_ops)
		`
		r.log.Info("vectorscale not installed, using HNSW index")
	}

	stmts := []string{
		annIdx,
		`CREATE INDEX IF NOT EXISTS documents_search_vector_idx
		 ON documents USING GIN (search_vector)`,
		`CREATE INDEX IF NOT EXISTS documents_title_lexeme_idx
		 ON documents USING GIN (title_lexeme gin_trgm_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}

// RefreshPublishedDates recomputes published_date relative to now so the
// trap quartets keep behaving under a 12-month temporal window: the winner
// stays recent, the baits age in steps, and the temporal bait falls outside
// the window entirely.
func (r *Restorer) RefreshPublishedDates(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET published_date = CASE
			WHEN trap_type = 'winner'        THEN NOW() - INTERVAL '3 months'
			WHEN trap_type = 'semantic_bait' THEN NOW() - INTERVAL '6 months'
			WHEN trap_type = 'keyword_bait'  THEN NOW() - INTERVAL '9 months'
			WHEN trap_type = 'temporal_bait' THEN NOW() - INTERVAL '3 years'
			ELSE created_at
		END
	`)
	if err != nil {
		return 0, fmt.Errorf("refresh published dates: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats summarizes a completed restore for verification output.
type Stats struct {
	Documents      int64
	WithEmbeddings int64
	WithPublished  int64
	TrapSets       int64
}

func (r *Restorer) Verify(ctx context.Context) (Stats, error) {
	var st Stats
	checks := []struct {
		sql  string
		dest *int64
	}{
		{`SELECT COUNT(*) FROM documents`, &st.Documents},
		{`SELECT COUNT(*) FROM documents WHERE embedding IS NOT NULL`, &st.WithEmbeddings},
		{`SELECT COUNT(*) FROM documents WHERE published_date IS NOT NULL`, &st.WithPublished},
		{`SELECT COUNT(DISTINCT trap_set) FROM documents WHERE trap_set IS NOT NULL`, &st.TrapSets},
	}
	for _, c := range checks {
		if err := r.pool.QueryRow(ctx, c.sql).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("verify restore: %w", err)
		}
	}
	if st.Documents > 0 && st.WithEmbeddings != st.Documents {
		return st, fmt.Errorf("verify restore: %d of %d documents missing embeddings",
			st.Documents-st.WithEmbeddings, st.Documents)
	}
	return st, nil
}

// Run executes the full restore pipeline.
func (r *Restorer) Run(ctx context.Context, csvPath string, dropExisting bool) (Stats, error) {
	ext, err := r.CheckExtensions(ctx)
	if err != nil {
		return Stats{}, err
	}
	if !ext.Vector {
		r.log.Warn("vector extension not reported installed; attempting CREATE EXTENSION")
	}

	if dropExisting {
		if err := r.DropExisting(ctx); err != nil {
			return Stats{}, err
		}
	}
	if err := r.EnsureSchema(ctx); err != nil {
		return Stats{}, err
	}
	if _, err := r.ImportCSV(ctx, csvPath); err != nil {
		return Stats{}, err
	}
	if err := r.BackfillTitleLexemes(ctx); err != nil {
		return Stats{}, err
	}
	if err := r.ConvertToHypertable(ctx); err != nil {
		return Stats{}, err
	}
	if err := r.EnsureIndexes(ctx, ext); err != nil {
		return Stats{}, err
	}
	updated, err := r.RefreshPublishedDates(ctx)
	if err != nil {
		return Stats{}, err
	}
	r.log.Info("published dates refreshed", zap.Int64("rows", updated))

	return r.Verify(ctx)
}
