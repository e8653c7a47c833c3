package eval

import "github.com/timescale/TimescaleDB-HybridSearch/search"

// Verdict describes how one search method handled a trap quartet: which role
// it ranked first and where the winner actually landed (0 when the winner
// never surfaced).
type Verdict struct {
	Method     string `json:"method"`
	TopRole    string `json:"top_role"`    // trap role of the first result, "" if untrapped
	WinnerRank int    `json:"winner_rank"` // 1-based, 0 when absent
	Correct    bool   `json:"correct"`     // winner ranked first
}

// Judge scores a response against one trap set. Documents from other trap
// sets or with no trap labels count as untrapped noise; only membership in
// trapSet decides the verdict.
func Judge(resp *search.SearchResponse, trapSet string) Verdict {
	v := Verdict{Method: resp.Method}
	for i, r := range resp.Results {
		doc := r.Document
		if doc.TrapSet != trapSet {
			continue
		}
		if v.TopRole == "" {
			v.TopRole = doc.TrapType
		}
		if doc.TrapType == search.TrapWinner && v.WinnerRank == 0 {
			v.WinnerRank = i + 1
		}
	}
	v.Correct = v.WinnerRank == 1
	return v
}
