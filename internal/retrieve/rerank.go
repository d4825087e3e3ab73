package retrieve

import (
	"context"
	"fmt"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/covenanthq/covenant/internal/model"
)

// RerankResult is one reranked document: its index into the submitted
// document list plus the service's relevance score.
type RerankResult struct {
	Index          int
	RelevanceScore float64
}

// Reranker is the cross-encoder reranking service boundary. A failed or
// unavailable rerank never aborts retrieval; the engine falls back to
// fused order.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}

// CohereReranker calls Cohere's rerank endpoint.
type CohereReranker struct {
	client *cohereclient.Client
	model  string
	limit  time.Duration
}

// NewCohereReranker builds a reranker from config. Returns nil when no
// API key is configured, which the engine treats as "rerank unavailable".
func NewCohereReranker(cfg model.CohereConfig) *CohereReranker {
	if cfg.APIKey == "" {
		return nil
	}
	return &CohereReranker{
		client: cohereclient.NewClient(cohereclient.WithToken(cfg.APIKey)),
		model:  cfg.Model,
		limit:  cfg.Timeout,
	}
}

// Rerank implements Reranker.
func (r *CohereReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error) {
	if r.limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.limit)
		defer cancel()
	}

	docs := make([]*cohere.RerankRequestDocumentsItem, 0, len(documents))
	for _, d := range documents {
		docs = append(docs, &cohere.RerankRequestDocumentsItem{String: d})
	}

	resp, err := r.client.Rerank(ctx, &cohere.RerankRequest{
		Query:     query,
		Documents: docs,
		Model:     cohere.String(r.model),
		TopN:      cohere.Int(topN),
	})
	if err != nil {
		return nil, fmt.Errorf("cohere rerank: %w", err)
	}

	results := make([]RerankResult, 0, len(resp.Results))
	for _, res := range resp.Results {
		results = append(results, RerankResult{
			Index:          res.Index,
			RelevanceScore: res.RelevanceScore,
		})
	}
	return results, nil
}
