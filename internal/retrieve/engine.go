package retrieve

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/covenanthq/covenant/internal/model"
)

// Embedder produces a query vector in the same embedding space as the
// chunk embeddings.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Engine runs hybrid retrieval: expand the query, score the vector and
// lexical legs, fuse with RRF, then rerank the head of the fused list.
type Engine struct {
	embedder Embedder
	reranker Reranker
	cfg      model.RetrievalConfig
	log      *zap.Logger
}

// NewEngine creates a retrieval engine. reranker may be nil, in which
// case retrieval always uses fused order.
func NewEngine(embedder Embedder, reranker Reranker, cfg model.RetrievalConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
		log:      log,
	}
}

// Search retrieves the most relevant chunks for a question. The two legs
// run concurrently; fusion is order-independent, so this changes nothing
// but latency. The returned candidates are relevance-ordered; the context
// assembler re-sorts them by document position.
func (e *Engine) Search(ctx context.Context, question string, chunks []model.Chunk) ([]model.RetrievalCandidate, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	expanded := Expand(question)
	e.log.Debug("query expanded",
		zap.String("question", question),
		zap.String("expanded", expanded))

	var vectorLeg, lexicalLeg []scored
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := e.embedder.EmbedQuery(gctx, expanded)
		if err != nil {
			// Vector leg degrades to empty; the lexical leg still ranks.
			e.log.Warn("query embedding failed, vector leg skipped", zap.Error(err))
			return nil
		}
		vectorLeg = vectorSearch(vec, chunks, e.cfg.TopN)
		return nil
	})

	g.Go(func() error {
		lexicalLeg = newLexicalIndex(chunks).search(expanded, e.cfg.TopN)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(vectorLeg, lexicalLeg, e.cfg.FusionK)
	if len(fused) == 0 {
		return nil, nil
	}

	return e.rerank(ctx, question, fused), nil
}

// rerank submits the head of the fused list to the cross-encoder and
// keeps the top results by relevance. Any failure falls back to the
// fused order truncated to the keep count; this step alone never aborts
// the pipeline.
func (e *Engine) rerank(ctx context.Context, question string, fused []model.RetrievalCandidate) []model.RetrievalCandidate {
	keep := e.cfg.RerankKeep
	if keep <= 0 || keep > len(fused) {
		keep = len(fused)
	}

	head := fused
	if e.cfg.RerankCandidates > 0 && len(head) > e.cfg.RerankCandidates {
		head = head[:e.cfg.RerankCandidates]
	}

	if e.reranker == nil || len(head) <= keep {
		return fused[:keep]
	}

	docs := make([]string, len(head))
	for i, c := range head {
		docs[i] = c.Chunk.Content
	}

	results, err := e.reranker.Rerank(ctx, question, docs, keep)
	if err != nil {
		e.log.Warn("rerank failed, using fused order", zap.Error(err))
		return fused[:keep]
	}

	reranked := make([]model.RetrievalCandidate, 0, keep)
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(head) {
			continue
		}
		cand := head[r.Index]
		cand.RerankScore = r.RelevanceScore
		reranked = append(reranked, cand)
		if len(reranked) == keep {
			break
		}
	}
	if len(reranked) == 0 {
		return fused[:keep]
	}
	return reranked
}
