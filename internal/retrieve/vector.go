package retrieve

import (
	"math"
	"sort"

	"github.com/covenanthq/covenant/internal/model"
)

// vectorSearch ranks chunks by cosine similarity to the query embedding
// and returns up to limit results, best first. Chunks without an
// embedding (or with a mismatched dimension) are skipped; the lexical leg
// still covers them.
func vectorSearch(queryVec []float32, chunks []model.Chunk, limit int) []scored {
	if len(queryVec) == 0 {
		return nil
	}

	results := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(queryVec) {
			continue
		}
		sim := cosine(queryVec, c.Embedding)
		if math.IsNaN(sim) {
			continue
		}
		results = append(results, scored{chunk: c, score: sim})
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].score != results[b].score {
			return results[a].score > results[b].score
		}
		return results[a].chunk.ID < results[b].chunk.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
