package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultDimensions matches the all-mpnet-base-v2 embeddings the demo dataset
// was built with.
const DefaultDimensions = 768

// DefaultCandidateLimit is the per-retriever fanout feeding fusion. Wider
// than any sensible final limit so both sides get a real say in the ranking.
const DefaultCandidateLimit = 20

// VectorHit is one candidate from the nearest-neighbor retriever, ordered
// ascending by cosine distance.
type VectorHit struct {
	ID       string
	Distance float64
}

// Similarity maps cosine distance to a [0..1] similarity score.
func (h VectorHit) Similarity() float64 { return 1 - h.Distance }

// LexicalHit is one candidate from the full-text retriever, ordered
// descending by relevance. Relevance is unbounded and positive; documents
// matching no query term are never returned at all.
type LexicalHit struct {
	ID        string
	Relevance float64
}

// Store is the retrieval collaborator the engine runs on. Both retrieval
// calls accept an optional recency window on published_date; nil means the
// whole collection. Implementations must order deterministically for a fixed
// dataset (ties broken by document ID).
type Store interface {
	NearestNeighbors(ctx context.Context, vec []float32, k int, window *TimeWindow) ([]VectorHit, error)
	LexicalMatch(ctx context.Context, query string, k int, window *TimeWindow) ([]LexicalHit, error)
	FetchDocuments(ctx context.Context, ids []string) (map[string]Document, error)

	GetDocumentByID(ctx context.Context, id string) (*Document, error)
	ListTrapSets(ctx context.Context) ([]string, error)
	GetTrapQuartet(ctx context.Context, trapSet string) (map[string]Document, error)
}

// Options configures an Engine. The zero value is usable: 768 dimensions,
// candidate fanout of 20, K of 60 and a no-op logger.
type Options struct {
	// Dimensions is the expected query-vector length.
	Dimensions int
	// CandidateLimit caps each retriever's candidate list in the hybrid
	// operations. Raised to the final limit when smaller.
	CandidateLimit int
	// RRFK overrides the fusion stabilizer constant.
	RRFK int
	Logger *zap.Logger
}

// Engine exposes the four search operations over a Store. It holds no
// resources of its own and is safe for concurrent use; the underlying
// collection is treated as read-only for the duration of every call.
type Engine struct {
	store          Store
	dims           int
	candidateLimit int
	rrfK           int
	log            *zap.Logger
}

func NewEngine(store Store, opts Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	fanout := opts.CandidateLimit
	if fanout <= 0 {
		fanout = DefaultCandidateLimit
	}
	k := opts.RRFK
	if k <= 0 {
		k = DefaultRRFK
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:          store,
		dims:           dims,
		candidateLimit: fanout,
		rrfK:           k,
		log:            log,
	}, nil
}

func (e *Engine) checkDimensions(vec []float32) error {
	if len(vec) != e.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidVectorDimension, len(vec), e.dims)
	}
	return nil
}

// VectorSearch ranks the whole collection by cosine distance to the query
// vector and returns the top limit documents with native similarity scores.
func (e *Engine) VectorSearch(ctx context.Context, queryVec []float32, limit int) (*SearchResponse, error) {
	if err := e.checkDimensions(queryVec); err != nil {
		return nil, err
	}
	start := time.Now()
	resp := &SearchResponse{Results: []ScoredResult{}, Method: MethodVector}
	if limit <= 0 {
		resp.ElapsedMs = msSince(start)
		return resp, nil
	}

	hits, err := e.store.NearestNeighbors(ctx, queryVec, limit, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	docs, err := e.store.FetchDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, h := range hits {
		doc, ok := docs[h.ID]
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, ScoredResult{
			Document:   doc,
			Score:      h.Similarity(),
			VectorRank: i + 1,
		})
	}
	resp.ElapsedMs = msSince(start)
	e.log.Debug("vector search",
		zap.Int("limit", limit),
		zap.Int("results", len(resp.Results)),
		zap.Float64("elapsed_ms", resp.ElapsedMs))
	return resp, nil
}

// TextSearch ranks documents matching the query under websearch syntax (bare
// terms AND-ed, quoted phrases, -term exclusion) by full-text relevance. An
// empty result set is a valid response, not an error.
func (e *Engine) TextSearch(ctx context.Context, queryText string, limit int) (*SearchResponse, error) {
	start := time.Now()
	resp := &SearchResponse{Results: []ScoredResult{}, Method: MethodText}
	if limit <= 0 {
		resp.ElapsedMs = msSince(start)
		return resp, nil
	}

	hits, err := e.store.LexicalMatch(ctx, queryText, limit, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	docs, err := e.store.FetchDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, h := range hits {
		doc, ok := docs[h.ID]
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, ScoredResult{
			Document: doc,
			Score:    h.Relevance,
			TextRank: i + 1,
		})
	}
	resp.ElapsedMs = msSince(start)
	e.log.Debug("text search",
		zap.Int("limit", limit),
		zap.Int("results", len(resp.Results)),
		zap.Float64("elapsed_ms", resp.ElapsedMs))
	return resp, nil
}

// HybridSearch fuses a vector candidate list and a text candidate list via
// reciprocal rank fusion and returns the top limit fused documents.
func (e *Engine) HybridSearch(ctx context.Context, queryText string, queryVec []float32, limit int, weights Weights) (*SearchResponse, error) {
	return e.hybrid(ctx, queryText, queryVec, limit, weights, nil, MethodHybrid)
}

// HybridTemporalSearch is HybridSearch restricted to documents whose
// published_date falls within [now - window, now]. The window string must
// match the "<count> <unit>" grammar; both retrievals are filtered before
// ranking, so a document outside the window can never surface regardless of
// how well it would have ranked.
func (e *Engine) HybridTemporalSearch(ctx context.Context, queryText string, queryVec []float32, window string, limit int, weights Weights) (*SearchResponse, error) {
	w, err := ParseTimeWindow(window)
	if err != nil {
		return nil, err
	}
	return e.hybrid(ctx, queryText, queryVec, limit, weights, &w, MethodHybridTemporal)
}

func (e *Engine) hybrid(ctx context.Context, queryText string, queryVec []float32, limit int, weights Weights, window *TimeWindow, method string) (*SearchResponse, error) {
	if err := e.checkDimensions(queryVec); err != nil {
		return nil, err
	}
	start := time.Now()
	resp := &SearchResponse{Results: []ScoredResult{}, Method: method}
	if limit <= 0 {
		resp.ElapsedMs = msSince(start)
		return resp, nil
	}

	fanout := e.candidateLimit
	if fanout < limit {
		fanout = limit
	}

	// The two retrievals have no data dependency; running them concurrently
	// must produce the same fused result as running them back to back.
	var vecHits []VectorHit
	var lexHits []LexicalHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vecHits, err = e.store.NearestNeighbors(gctx, queryVec, fanout, window)
		return err
	})
	g.Go(func() error {
		var err error
		lexHits, err = e.store.LexicalMatch(gctx, queryText, fanout, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vecIDs := make([]string, len(vecHits))
	for i, h := range vecHits {
		vecIDs[i] = h.ID
	}
	lexIDs := make([]string, len(lexHits))
	for i, h := range lexHits {
		lexIDs[i] = h.ID
	}

	fused := FuseRRF(vecIDs, lexIDs, weights, e.rrfK, limit)
	results, err := e.hydrate(ctx, fused)
	if err != nil {
		return nil, err
	}
	resp.Results = results
	resp.ElapsedMs = msSince(start)
	e.log.Debug("hybrid search",
		zap.String("method", method),
		zap.Int("vector_candidates", len(vecHits)),
		zap.Int("text_candidates", len(lexHits)),
		zap.Int("results", len(results)),
		zap.Float64("elapsed_ms", resp.ElapsedMs))
	return resp, nil
}

func (e *Engine) hydrate(ctx context.Context, fused []FusedHit) ([]ScoredResult, error) {
	out := []ScoredResult{}
	if len(fused) == 0 {
		return out, nil
	}
	ids := make([]string, len(fused))
	for i, h := range fused {
		ids[i] = h.ID
	}
	docs, err := e.store.FetchDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, h := range fused {
		doc, ok := docs[h.ID]
		if !ok {
			continue
		}
		out = append(out, ScoredResult{
			Document:   doc,
			Score:      h.Score,
			VectorRank: h.VectorRank,
			TextRank:   h.TextRank,
		})
	}
	return out, nil
}

// GetDocumentByID is a read-only pass-through to the store. Returns nil when
// no document carries the ID.
func (e *Engine) GetDocumentByID(ctx context.Context, id string) (*Document, error) {
	return e.store.GetDocumentByID(ctx, id)
}

// ListTrapSets returns the distinct evaluation group names in the collection.
func (e *Engine) ListTrapSets(ctx context.Context) ([]string, error) {
	return e.store.ListTrapSets(ctx)
}

// GetTrapQuartet returns the documents of one evaluation group keyed by role.
func (e *Engine) GetTrapQuartet(ctx context.Context, trapSet string) (map[string]Document, error) {
	return e.store.GetTrapQuartet(ctx, trapSet)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
