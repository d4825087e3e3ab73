package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/covenanthq/covenant/internal/cache"
	"github.com/covenanthq/covenant/internal/model"
)

const embedMaxRetries = 3

// embedSleepFunc is the sleep function used between retries (injectable for tests)
var embedSleepFunc = time.Sleep

// EmbeddingClient produces query vectors in the same space as the chunk
// embeddings. Query vectors are cached; identical questions within the
// TTL cost nothing.
type EmbeddingClient struct {
	api     embeddingAPI
	limiter limiter
	cache   cache.Cache // nil disables caching
	model   string
	ttl     time.Duration
	log     *zap.Logger
}

// NewEmbeddingClient builds an embedding client against the real OpenAI
// API. c may be nil to disable caching.
func NewEmbeddingClient(cfg model.OpenAIConfig, lim limiter, c cache.Cache, ttl time.Duration, log *zap.Logger) *EmbeddingClient {
	return newEmbeddingClient(openai.NewClient(cfg.APIKey), cfg, lim, c, ttl, log)
}

func newEmbeddingClient(api embeddingAPI, cfg model.OpenAIConfig, lim limiter, c cache.Cache, ttl time.Duration, log *zap.Logger) *EmbeddingClient {
	if lim == nil {
		lim = nopLimiter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EmbeddingClient{
		api:     api,
		limiter: lim,
		cache:   c,
		model:   cfg.EmbeddingModel,
		ttl:     ttl,
		log:     log,
	}
}

// EmbedQuery embeds a single query string.
func (e *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cache.EmbeddingKey(e.model, text)
	if e.cache != nil {
		if data, ok := e.cache.Get(key); ok {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil {
				return vec, nil
			}
		}
	}

	vecs, err := e.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}

	if e.cache != nil {
		if data, err := json.Marshal(vecs[0]); err == nil {
			_ = e.cache.Set(key, data, e.ttl)
		}
	}
	return vecs[0], nil
}

// EmbedBatch embeds many texts in one call. Used when a fixture corpus
// is loaded without precomputed vectors.
func (e *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embedWithRetry(ctx, texts)
}

// embedWithRetry calls the embeddings API with exponential backoff on
// transient failures.
func (e *EmbeddingClient) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			e.log.Warn("embedding call failed, backing off",
				zap.Duration("backoff", backoff), zap.Error(lastErr))
			embedSleepFunc(backoff)
		}

		if err := e.limiter.Wait(ctx, serviceOpenAI); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, fmt.Errorf("embedding: %w", ctx.Err())
			}
			continue
		}

		vecs := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			vecs[i] = d.Embedding
		}
		return vecs, nil
	}
	return nil, fmt.Errorf("embedding after %d attempts: %w", embedMaxRetries, lastErr)
}
