package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

func TestRecallAtK(t *testing.T) {
	got := []string{"a", "b", "c", "d"}

	assert.Equal(t, 1.0, RecallAtK(got, nil, 3))
	assert.Equal(t, 0.0, RecallAtK(got, []string{"a"}, 0))
	assert.Equal(t, 1.0, RecallAtK(got, []string{"a", "b"}, 2))
	assert.Equal(t, 0.5, RecallAtK(got, []string{"a", "z"}, 4))
	assert.Equal(t, 0.0, RecallAtK(nil, []string{"a"}, 3))
	// k beyond the list length clamps.
	assert.Equal(t, 1.0, RecallAtK(got, []string{"d"}, 10))
}

func TestMRR(t *testing.T) {
	assert.Equal(t, 1.0, MRR([]string{"a", "b"}, []string{"a"}))
	assert.Equal(t, 0.5, MRR([]string{"x", "a"}, []string{"a"}))
	assert.Equal(t, 0.0, MRR([]string{"x", "y"}, []string{"a"}))
	assert.Equal(t, 1.0, MRR(nil, nil))
}

func quartetResponse(ids ...[2]string) *search.SearchResponse {
	resp := &search.SearchResponse{Method: search.MethodHybrid}
	for i, pair := range ids {
		resp.Results = append(resp.Results, search.ScoredResult{
			Document: search.Document{
				ID:       string(rune('a' + i)),
				TrapSet:  pair[0],
				TrapType: pair[1],
			},
		})
	}
	return resp
}

func TestJudge_WinnerFirst(t *testing.T) {
	resp := quartetResponse(
		[2]string{"authentication", search.TrapWinner},
		[2]string{"authentication", search.TrapSemanticBait},
	)
	v := Judge(resp, "authentication")
	assert.True(t, v.Correct)
	assert.Equal(t, search.TrapWinner, v.TopRole)
	assert.Equal(t, 1, v.WinnerRank)
}

func TestJudge_BaitWins(t *testing.T) {
	resp := quartetResponse(
		[2]string{"authentication", search.TrapKeywordBait},
		[2]string{"", ""},
		[2]string{"authentication", search.TrapWinner},
	)
	v := Judge(resp, "authentication")
	assert.False(t, v.Correct)
	assert.Equal(t, search.TrapKeywordBait, v.TopRole)
	assert.Equal(t, 3, v.WinnerRank)
}

func TestJudge_OtherTrapSetIgnored(t *testing.T) {
	resp := quartetResponse(
		[2]string{"compression", search.TrapWinner},
		[2]string{"authentication", search.TrapWinner},
	)
	v := Judge(resp, "authentication")
	assert.False(t, v.Correct)
	assert.Equal(t, search.TrapWinner, v.TopRole)
	assert.Equal(t, 2, v.WinnerRank)
}

func TestJudge_WinnerAbsent(t *testing.T) {
	resp := quartetResponse([2]string{"", ""})
	v := Judge(resp, "authentication")
	assert.False(t, v.Correct)
	assert.Empty(t, v.TopRole)
	assert.Zero(t, v.WinnerRank)
}
