package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/covenanthq/covenant/internal/model"
)

const schemaName = "governing_doc_answer"

// GenerateRequest is the input to the generation stage.
type GenerateRequest struct {
	Question    string
	ContextText string
	TenantName  string // Optional; personalizes the reply
	History     []model.ConversationTurn
}

// Generator is the first model call: one structured-output completion
// producing claims with citations.
type Generator struct {
	api     chatAPI
	limiter limiter
	cfg     model.OpenAIConfig
	log     *zap.Logger
}

// NewGenerator builds the generation stage against the real OpenAI API.
func NewGenerator(cfg model.OpenAIConfig, lim limiter, log *zap.Logger) *Generator {
	return newGenerator(openai.NewClient(cfg.APIKey), cfg, lim, log)
}

func newGenerator(api chatAPI, cfg model.OpenAIConfig, lim limiter, log *zap.Logger) *Generator {
	if lim == nil {
		lim = nopLimiter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{api: api, limiter: lim, cfg: cfg, log: log}
}

// Generate runs the generation call. Non-conforming output or a timeout
// is retried once with the same input; the second failure is returned to
// the orchestrator, which escalates instead of crashing.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (model.GenerationResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildGenerateMessage(req.Question, req.ContextText, req.TenantName, req.History)},
	}
	return g.completeWithRetry(ctx, messages, 0.1)
}

// completeWithRetry performs one structured completion with a single
// retry on schema violations and timeouts.
func (g *Generator) completeWithRetry(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32) (model.GenerationResult, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			g.log.Warn("model call failed, retrying once", zap.Error(lastErr))
		}
		result, err := g.complete(ctx, messages, temperature)
		if err == nil {
			return result, nil
		}
		lastErr = err
		// Caller cancellation is not retryable; a per-call deadline is.
		if ctx.Err() != nil {
			return model.GenerationResult{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
	}
	return model.GenerationResult{}, lastErr
}

func (g *Generator) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32) (model.GenerationResult, error) {
	if err := g.limiter.Wait(ctx, serviceOpenAI); err != nil {
		return model.GenerationResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: responseSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return model.GenerationResult{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return model.GenerationResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.GenerationResult{}, fmt.Errorf("%w: empty choices", ErrSchema)
	}

	result, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return model.GenerationResult{}, err
	}

	g.log.Debug("model call complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("answer_type", string(result.AnswerType)),
		zap.Int("claims", len(result.Claims)))
	return result, nil
}

// FailedResult builds the synthetic claim-free result used when
// generation fails twice. It always trips the escalation gate, so the
// pipeline still terminates with an outcome instead of an exception.
func FailedResult(err error) model.GenerationResult {
	return model.GenerationResult{
		AnswerType:         model.AnswerNotInDocuments,
		OverallConfidence:  model.ConfidenceLow,
		AnswerCompleteness: "NONE",
		ShouldEscalate:     true,
		EscalationReason:   fmt.Sprintf("generation failed: %v", err),
	}
}
