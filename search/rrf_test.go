package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fusedIDs(hits []FusedHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestFuseRRF_WorkedExample(t *testing.T) {
	vector := []string{"D1", "D2", "D3"}
	text := []string{"D2", "D4"}
	w := Weights{Vector: 0.5, Text: 0.5}

	got := FuseRRF(vector, text, w, 60, 10)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"D2", "D1", "D4", "D3"}, fusedIDs(got))

	assert.InDelta(t, 0.5/61+0.5/61, got[0].Score, 1e-12) // D2: rank 2 vector, rank 1 text
	assert.InDelta(t, 0.5/61, got[1].Score, 1e-12)        // D1
	assert.InDelta(t, 0.5/62, got[2].Score, 1e-12)        // D4
	assert.InDelta(t, 0.5/63, got[3].Score, 1e-12)        // D3

	d2 := got[0]
	assert.Equal(t, 2, d2.VectorRank)
	assert.Equal(t, 1, d2.TextRank)
	d1 := got[1]
	assert.Equal(t, 1, d1.VectorRank)
	assert.Zero(t, d1.TextRank)
}

func TestFuseRRF_UnionCompleteness(t *testing.T) {
	vector := []string{"a", "b", "c", "d"}
	text := []string{"c", "d", "e", "f"}

	got := FuseRRF(vector, text, DefaultWeights, DefaultRRFK, 100)
	require.Len(t, got, 6)

	seen := map[string]int{}
	for _, h := range got {
		seen[h.ID]++
	}
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, 1, seen[id], "id %s", id)
	}
}

func TestFuseRRF_RankMonotonicity(t *testing.T) {
	// Documents present only in the vector list must keep vector order.
	vector := []string{"v1", "v2", "v3", "v4"}
	got := FuseRRF(vector, nil, Weights{Vector: 1, Text: 1}, DefaultRRFK, 10)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"v1", "v2", "v3", "v4"}, fusedIDs(got))
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].Score, got[i].Score)
	}
}

func TestFuseRRF_WeightZeroing(t *testing.T) {
	vector := []string{"b", "d", "a"}
	text := []string{"z", "a", "y"}

	got := FuseRRF(vector, text, Weights{Vector: 0.7, Text: 0}, DefaultRRFK, 10)
	require.Len(t, got, 5)
	// Vector order decides; text-only documents score 0 and tie-break by ID.
	assert.Equal(t, []string{"b", "d", "a", "y", "z"}, fusedIDs(got))
	assert.Zero(t, got[3].Score)
	assert.Zero(t, got[4].Score)
}

func TestFuseRRF_LimitBoundaries(t *testing.T) {
	vector := []string{"a", "b"}
	text := []string{"b", "c"}

	assert.Empty(t, FuseRRF(vector, text, DefaultWeights, DefaultRRFK, 0))
	assert.Empty(t, FuseRRF(vector, text, DefaultWeights, DefaultRRFK, -3))

	full := FuseRRF(vector, text, DefaultWeights, DefaultRRFK, 50)
	assert.Len(t, full, 3)

	capped := FuseRRF(vector, text, DefaultWeights, DefaultRRFK, 2)
	assert.Equal(t, fusedIDs(full)[:2], fusedIDs(capped))
}

func TestFuseRRF_Deterministic(t *testing.T) {
	vector := []string{"m", "k", "z", "a"}
	text := []string{"q", "a", "m", "b"}

	first := FuseRRF(vector, text, DefaultWeights, DefaultRRFK, 10)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, FuseRRF(vector, text, DefaultWeights, DefaultRRFK, 10))
	}
}

func TestFuseRRF_TieBreakByID(t *testing.T) {
	// Same single rank in opposite lists with equal weights: scores tie, ID
	// ascending decides.
	got := FuseRRF([]string{"zz"}, []string{"aa"}, Weights{Vector: 1, Text: 1}, DefaultRRFK, 10)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"aa", "zz"}, fusedIDs(got))
}

func TestFuseRRF_DuplicateInOneList(t *testing.T) {
	got := FuseRRF([]string{"a", "a", "b"}, nil, Weights{Vector: 1}, DefaultRRFK, 10)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].VectorRank)
	assert.InDelta(t, 1.0/61, got[0].Score, 1e-12)
}

func TestFuseRRF_DefaultK(t *testing.T) {
	vector := []string{"a", "b"}
	assert.Equal(t,
		FuseRRF(vector, nil, DefaultWeights, DefaultRRFK, 10),
		FuseRRF(vector, nil, DefaultWeights, 0, 10))
}
