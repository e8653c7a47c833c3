package search

import "sort"

// RRF (Reciprocal Rank Fusion) combines ranked lists without relying on raw
// score calibration. Vector similarity and text relevance have incomparable,
// differently-shaped distributions; rank position is the only signal the two
// retrievers share, so fusion goes through ranks, never raw scores.
//
// Formula:
//
//	score(doc) = wVector/(k + rankVector) + wText/(k + rankText)
//
// where ranks are 1-based positions and a side the document is absent from
// contributes 0.

// DefaultRRFK is the standard stabilizer constant; higher K flattens rank
// differences and dampens rank-1 dominance.
const DefaultRRFK = 60

// Weights scales each retriever's rank contribution. The two weights are not
// required to sum to 1; that is the caller's call.
type Weights struct {
	Vector float64 `json:"vector"`
	Text   float64 `json:"text"`
}

// DefaultWeights gives both retrievers an equal say.
var DefaultWeights = Weights{Vector: 0.5, Text: 0.5}

// FusedHit is one row of a fused ranking. Ranks are 1-based; 0 means the
// document did not appear in that candidate list.
type FusedHit struct {
	ID         string
	Score      float64
	VectorRank int
	TextRank   int
}

// FuseRRF merges two ranked candidate lists (best-first document IDs) into a
// single ranking, truncated to limit. It is a pure function over the input
// lists: no storage access, no error cases. Every ID appearing in either list
// appears in the pre-truncation ranking exactly once; a duplicate ID within
// one list keeps its first (best) rank.
//
// Ties on fused score break by document ID ascending so identical inputs
// always produce identical output.
func FuseRRF(vectorIDs, textIDs []string, weights Weights, k, limit int) []FusedHit {
	if limit <= 0 {
		return []FusedHit{}
	}
	if k <= 0 {
		k = DefaultRRFK
	}

	hits := make(map[string]*FusedHit, len(vectorIDs)+len(textIDs))

	for i, id := range vectorIDs {
		h := hits[id]
		if h == nil {
			h = &FusedHit{ID: id}
			hits[id] = h
		}
		if h.VectorRank == 0 {
			h.VectorRank = i + 1
			h.Score += weights.Vector / float64(k+i+1)
		}
	}
	for i, id := range textIDs {
		h := hits[id]
		if h == nil {
			h = &FusedHit{ID: id}
			hits[id] = h
		}
		if h.TextRank == 0 {
			h.TextRank = i + 1
			h.Score += weights.Text / float64(k+i+1)
		}
	}

	out := make([]FusedHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
