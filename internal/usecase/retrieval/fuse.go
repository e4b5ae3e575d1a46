package retrieval

import (
	"sort"

	"market-intel/internal/domain"
	"market-intel/internal/index"
)

type fusedHit struct {
	id    domain.ChunkID
	score float64
}

// fuseRRF combines ranked hit lists by reciprocal rank fusion:
// score(chunk) = sum over lists of 1/(rrfK + rank), rank 1-based. A chunk
// absent from a list contributes nothing from it. Output is sorted by fused
// score descending; ties keep first-seen order across the input lists, which
// is insertion order because each index breaks its own ties that way.
func fuseRRF(lists [][]index.Hit, rrfK float64) []fusedHit {
	scores := make(map[string]*fusedHit)
	var order []string

	for _, list := range lists {
		for rank, hit := range list {
			key := hit.ID.String()
			fused, ok := scores[key]
			if !ok {
				fused = &fusedHit{id: hit.ID}
				scores[key] = fused
				order = append(order, key)
			}
			fused.score += 1.0 / (rrfK + float64(rank+1))
		}
	}

	out := make([]fusedHit, 0, len(order))
	for _, key := range order {
		out = append(out, *scores[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}
