// Package llm holds the two model-call stages of the pipeline: the
// structured generation call and the conditional verification call, plus
// the query-embedding client. All calls go through the shared service
// rate limiter and a per-call timeout.
package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Upstream service names used with the shared rate limiter.
const (
	serviceOpenAI = "openai"
)

// ErrSchema marks model output that does not conform to the response
// schema. The generator retries once; a second failure surfaces this
// error and the orchestrator converts it into an escalation.
var ErrSchema = errors.New("llm: response does not conform to schema")

// ErrTimeout marks a model call that exceeded its deadline. The
// orchestrator treats it exactly like ErrSchema: retry once, then
// escalate.
var ErrTimeout = errors.New("llm: model call timed out")

// chatAPI abstracts the chat-completion endpoint for tests.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// embeddingAPI abstracts the embeddings endpoint for tests.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// limiter is the subset of the worker rate limiter the clients need.
type limiter interface {
	Wait(ctx context.Context, service string) error
}

// nopLimiter is used when no limiter is injected (tests, one-shot CLI).
type nopLimiter struct{}

func (nopLimiter) Wait(context.Context, string) error { return nil }
