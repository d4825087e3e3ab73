package retrieve

import (
	"sort"

	"github.com/covenanthq/covenant/internal/model"
)

// fuse merges two ranked legs with Reciprocal Rank Fusion: each chunk's
// fused score is the sum of 1/(k + rank) over the legs it appears in,
// with rank starting at 1. A chunk present in both legs always outscores
// a chunk at the same ranks in only one. Ties break by chunk identity so
// fusion is independent of leg evaluation order.
func fuse(vectorLeg, lexicalLeg []scored, k int) []model.RetrievalCandidate {
	scores := make(map[string]float64)
	byID := make(map[string]model.Chunk)

	accumulate := func(leg []scored) {
		for rank, s := range leg {
			scores[s.chunk.ID] += 1.0 / float64(k+rank+1)
			byID[s.chunk.ID] = s.chunk
		}
	}
	accumulate(vectorLeg)
	accumulate(lexicalLeg)

	fused := make([]model.RetrievalCandidate, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, model.RetrievalCandidate{
			Chunk:      byID[id],
			FusedScore: score,
		})
	}

	sort.SliceStable(fused, func(a, b int) bool {
		if fused[a].FusedScore != fused[b].FusedScore {
			return fused[a].FusedScore > fused[b].FusedScore
		}
		return fused[a].Chunk.ID < fused[b].Chunk.ID
	})

	return fused
}
