package retrieve

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/covenanthq/covenant/internal/model"
)

// BM25 constants. k1 controls term-frequency saturation, b controls
// document-length normalization.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// lexicalIndex is a BM25 index over one community's chunks, built per
// retrieval call. Chunks are immutable, so the index never invalidates
// mid-call.
type lexicalIndex struct {
	chunks   []model.Chunk
	termFreq []map[string]int // per-chunk term counts
	docFreq  map[string]int   // term -> number of chunks containing it
	lengths  []int
	avgLen   float64
}

// scored pairs a chunk with a retrieval-leg score.
type scored struct {
	chunk model.Chunk
	score float64
}

// newLexicalIndex builds a BM25 index over the given chunks.
func newLexicalIndex(chunks []model.Chunk) *lexicalIndex {
	idx := &lexicalIndex{
		chunks:   chunks,
		termFreq: make([]map[string]int, len(chunks)),
		docFreq:  make(map[string]int),
		lengths:  make([]int, len(chunks)),
	}

	var totalLen int
	for i, c := range chunks {
		terms := tokenize(c.Content)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		idx.termFreq[i] = tf
		idx.lengths[i] = len(terms)
		totalLen += len(terms)
		for t := range tf {
			idx.docFreq[t]++
		}
	}
	if len(chunks) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(chunks))
	}
	return idx
}

// search ranks all chunks against the query and returns up to limit
// positive-scoring chunks, best first. Ties break by chunk identity so
// identical inputs always produce identical rankings.
func (idx *lexicalIndex) search(query string, limit int) []scored {
	terms := tokenize(query)
	if len(terms) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	n := float64(len(idx.chunks))
	results := make([]scored, 0, len(idx.chunks))

	for i, c := range idx.chunks {
		var score float64
		dl := float64(idx.lengths[i])
		for _, t := range terms {
			tf := float64(idx.termFreq[i][t])
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreq[t])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*dl/idx.avgLen))
		}
		if score > 0 {
			results = append(results, scored{chunk: c, score: score})
		}
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

// tokenize lowercases and splits on anything that is not a letter or
// digit. Multi-word synonym expansions fall out as individual terms,
// which is what BM25 wants anyway.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
