package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/covenanthq/covenant/internal/cache"
	"github.com/covenanthq/covenant/internal/model"
)

type fakeEmbeddings struct {
	calls int
	errs  []error
	vec   []float32
}

func (f *fakeEmbeddings) CreateEmbeddings(_ context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.EmbeddingResponse{}, f.errs[i]
	}

	n := 1
	if r, ok := req.(openai.EmbeddingRequest); ok {
		if texts, ok := r.Input.([]string); ok {
			n = len(texts)
		}
	}
	data := make([]openai.Embedding, n)
	for j := range data {
		data[j] = openai.Embedding{Embedding: f.vec}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

func embeddingConfig() model.OpenAIConfig {
	return model.OpenAIConfig{EmbeddingModel: "test-embed"}
}

func TestEmbedQuery(t *testing.T) {
	api := &fakeEmbeddings{vec: []float32{0.1, 0.2}}
	c := newEmbeddingClient(api, embeddingConfig(), nil, nil, time.Minute, nil)

	vec, err := c.EmbedQuery(context.Background(), "can i have a dog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("expected 2-dim vector, got %d", len(vec))
	}
}

func TestEmbedQuery_CachesResult(t *testing.T) {
	api := &fakeEmbeddings{vec: []float32{0.5}}
	mc := cache.NewMemoryCache(time.Minute, time.Minute)
	c := newEmbeddingClient(api, embeddingConfig(), nil, mc, time.Minute, nil)

	for i := 0; i < 3; i++ {
		vec, err := c.EmbedQuery(context.Background(), "same question")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if len(vec) != 1 || vec[0] != 0.5 {
			t.Fatalf("call %d: unexpected vector %v", i, vec)
		}
	}
	if api.calls != 1 {
		t.Errorf("expected 1 API call with caching, got %d", api.calls)
	}
}

func TestEmbedQuery_RetriesTransientFailure(t *testing.T) {
	origSleep := embedSleepFunc
	embedSleepFunc = func(time.Duration) {}
	defer func() { embedSleepFunc = origSleep }()

	api := &fakeEmbeddings{vec: []float32{1}, errs: []error{errors.New("transient")}}
	c := newEmbeddingClient(api, embeddingConfig(), nil, nil, time.Minute, nil)

	vec, err := c.EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(vec) != 1 {
		t.Errorf("unexpected vector %v", vec)
	}
	if api.calls != 2 {
		t.Errorf("expected 2 API calls, got %d", api.calls)
	}
}

func TestEmbedQuery_GivesUpAfterMaxRetries(t *testing.T) {
	origSleep := embedSleepFunc
	embedSleepFunc = func(time.Duration) {}
	defer func() { embedSleepFunc = origSleep }()

	boom := errors.New("hard down")
	api := &fakeEmbeddings{errs: []error{boom, boom, boom}}
	c := newEmbeddingClient(api, embeddingConfig(), nil, nil, time.Minute, nil)

	_, err := c.EmbedQuery(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if api.calls != embedMaxRetries {
		t.Errorf("expected %d attempts, got %d", embedMaxRetries, api.calls)
	}
}

func TestEmbedBatch(t *testing.T) {
	api := &fakeEmbeddings{vec: []float32{0.3}}
	c := newEmbeddingClient(api, embeddingConfig(), nil, nil, time.Minute, nil)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Errorf("expected 3 vectors, got %d", len(vecs))
	}
	if api.calls != 1 {
		t.Errorf("batch should be one API call, got %d", api.calls)
	}

	empty, err := c.EmbedBatch(context.Background(), nil)
	if err != nil || empty != nil {
		t.Errorf("empty batch should be a no-op, got %v, %v", empty, err)
	}
}
