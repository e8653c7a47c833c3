package search

import "time"

// Trap roles used by the evaluation quartets. A quartet pairs one correct
// answer with three deliberately confounding variants; the labels are demo
// metadata and never feed into ranking.
const (
	TrapWinner       = "winner"
	TrapSemanticBait = "semantic_bait"
	TrapKeywordBait  = "keyword_bait"
	TrapTemporalBait = "temporal_bait"
)

// Method labels attached to every SearchResponse. Display layers key off
// these to decide how native scores may be scaled; vector similarity lives in
// [0..1] while text relevance is unbounded, so the two must never be
// normalized against each other.
const (
	MethodVector         = "Vector Search"
	MethodText           = "Text Search"
	MethodHybrid         = "Hybrid Search"
	MethodHybridTemporal = "Hybrid + Temporal"
)

// Document is the unit of retrieval. The embedding and the derived weighted
// tsvector live server-side only; both are always present for every stored
// row.
type Document struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Body            string     `json:"body"`
	Category        string     `json:"category,omitempty"`
	Version         string     `json:"version,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	IsDeprecated    bool       `json:"is_deprecated"`
	DeprecationNote string     `json:"deprecation_note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PublishedDate   *time.Time `json:"published_date,omitempty"`

	// TrapSet and TrapType are either both set or both empty.
	TrapSet  string `json:"trap_set,omitempty"`
	TrapType string `json:"trap_type,omitempty"`
}

// ScoredResult is one ranked row of a response. For the fused methods,
// VectorRank and TextRank are the 1-based positions the document held in each
// candidate list (0 when absent from that list). For the standalone methods
// only the producing side is set and Score is that method's native score.
type ScoredResult struct {
	Document   Document `json:"document"`
	Score      float64  `json:"score"`
	VectorRank int      `json:"vector_rank,omitempty"`
	TextRank   int      `json:"text_rank,omitempty"`
}

// SearchResponse is the uniform envelope returned by all four operations.
// Results are ordered best-first.
type SearchResponse struct {
	Results   []ScoredResult `json:"results"`
	ElapsedMs float64        `json:"elapsed_ms"`
	Method    string         `json:"method"`
}
