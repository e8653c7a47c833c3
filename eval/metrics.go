// Package eval provides small ranking-quality metrics for the demo's
// correctness display. Nothing here feeds back into ranking.
package eval

// RecallAtK computes recall@k over ranked document IDs.
func RecallAtK(got []string, expected []string, k int) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	if k <= 0 {
		return 0.0
	}
	if k > len(got) {
		k = len(got)
	}

	exp := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		exp[id] = struct{}{}
	}

	hit := 0
	for i := 0; i < k; i++ {
		if _, ok := exp[got[i]]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(expected))
}

// MRR computes mean reciprocal rank for a single ranked list.
func MRR(got []string, expected []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	exp := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		exp[id] = struct{}{}
	}
	for i, id := range got {
		if _, ok := exp[id]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}
