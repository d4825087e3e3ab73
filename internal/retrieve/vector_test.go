package retrieve

import (
	"math"
	"testing"

	"github.com/covenanthq/covenant/internal/model"
)

func TestVectorSearch_RanksBySimilarity(t *testing.T) {
	chunks := []model.Chunk{
		{ID: "orthogonal", Embedding: []float32{0, 1, 0}},
		{ID: "aligned", Embedding: []float32{1, 0, 0}},
		{ID: "close", Embedding: []float32{0.9, 0.1, 0}},
	}

	results := vectorSearch([]float32{1, 0, 0}, chunks, 10)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].chunk.ID != "aligned" {
		t.Errorf("expected aligned first, got %s", results[0].chunk.ID)
	}
	if results[1].chunk.ID != "close" {
		t.Errorf("expected close second, got %s", results[1].chunk.ID)
	}
}

func TestVectorSearch_SkipsMismatchedDimensions(t *testing.T) {
	chunks := []model.Chunk{
		{ID: "good", Embedding: []float32{1, 0}},
		{ID: "wrong-dim", Embedding: []float32{1, 0, 0}},
		{ID: "no-embedding"},
	}

	results := vectorSearch([]float32{1, 0}, chunks, 10)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].chunk.ID != "good" {
		t.Errorf("expected good, got %s", results[0].chunk.ID)
	}
}

func TestVectorSearch_SkipsZeroVectors(t *testing.T) {
	chunks := []model.Chunk{
		{ID: "zero", Embedding: []float32{0, 0}},
	}

	if results := vectorSearch([]float32{1, 0}, chunks, 10); len(results) != 0 {
		t.Errorf("zero-norm chunk should be skipped, got %d results", len(results))
	}
}

func TestVectorSearch_EmptyQuery(t *testing.T) {
	chunks := []model.Chunk{{ID: "a", Embedding: []float32{1}}}
	if results := vectorSearch(nil, chunks, 10); results != nil {
		t.Errorf("expected nil for empty query vector")
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: expected 1, got %v", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 0, got %v", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 0}); !math.IsNaN(got) {
		t.Errorf("zero vector: expected NaN, got %v", got)
	}
}
