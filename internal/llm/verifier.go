package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/covenanthq/covenant/internal/model"
)

// VerifyRequest is the input to the conditional verification stage: the
// flagged claims plus their source context, not the full pipeline state.
type VerifyRequest struct {
	Question    string
	Initial     model.GenerationResult
	ContextText string
	Flagged     []model.Claim // Claims that failed deterministic verification
	History     []model.ConversationTurn
}

// Verifier is the second model call. It re-examines flagged claims and
// may downgrade confidence, drop claims, or set should_escalate, never
// the reverse. The narrowing clamp below enforces that contract even if
// the model tries to upgrade.
type Verifier struct {
	gen *Generator
	log *zap.Logger
}

// NewVerifier builds the verification stage against the real OpenAI API.
func NewVerifier(cfg model.OpenAIConfig, lim limiter, log *zap.Logger) *Verifier {
	return newVerifier(openai.NewClient(cfg.APIKey), cfg, lim, log)
}

func newVerifier(api chatAPI, cfg model.OpenAIConfig, lim limiter, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{gen: newGenerator(api, cfg, lim, log), log: log}
}

// NeedsVerification is the stage's trigger rule: run only when a claim is
// unverified, overall confidence is MEDIUM, or the answer is PARTIAL.
// High-confidence fully-verified results skip the second call entirely.
func NeedsVerification(r model.GenerationResult) bool {
	return r.HasUnverifiedClaims() ||
		r.OverallConfidence == model.ConfidenceMedium ||
		r.AnswerType == model.AnswerPartial
}

// Verify runs the second call and merges its output under the narrowing
// contract. On failure the initial result is returned unchanged along
// with the error; unverified claims then trip the gate regardless.
func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) (model.GenerationResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: verifySystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildVerifyMessage(req.Question, req.Initial, req.ContextText, req.Flagged, req.History)},
	}

	revised, err := v.gen.completeWithRetry(ctx, messages, 0.0)
	if err != nil {
		return req.Initial, err
	}
	return narrow(req.Initial, revised), nil
}

// narrow merges the revision into the initial result as a
// demotion-only pass: confidence never rises, should_escalate only sets,
// and verified flags reset so the deterministic verifier re-derives them
// for the revised quotes.
func narrow(initial, revised model.GenerationResult) model.GenerationResult {
	out := revised.Clone()

	if confidenceRank(out.OverallConfidence) > confidenceRank(initial.OverallConfidence) {
		out.OverallConfidence = initial.OverallConfidence
	}
	out.ShouldEscalate = initial.ShouldEscalate || revised.ShouldEscalate
	if out.EscalationReason == "" {
		out.EscalationReason = initial.EscalationReason
	}

	// Each revised claim's confidence ceiling is the initial claim it
	// corresponds to, matched by text or, for a reworded claim, by its
	// quote. A claim matching nothing is capped at the highest
	// confidence the initial result carried anywhere.
	initialByText := make(map[string]model.Claim, len(initial.Claims))
	initialByQuote := make(map[string]model.Claim, len(initial.Claims))
	var maxInitial model.Confidence
	for _, c := range initial.Claims {
		initialByText[c.ClaimText] = c
		initialByQuote[c.SourceQuote] = c
		if confidenceRank(c.Confidence) > confidenceRank(maxInitial) {
			maxInitial = c.Confidence
		}
	}
	if len(initial.Claims) == 0 {
		maxInitial = initial.OverallConfidence
	}
	for i, c := range out.Claims {
		out.Claims[i].Verified = false
		out.Claims[i].MatchScore = 0

		ceiling := maxInitial
		if orig, ok := initialByText[c.ClaimText]; ok {
			ceiling = orig.Confidence
		} else if orig, ok := initialByQuote[c.SourceQuote]; ok {
			ceiling = orig.Confidence
		}
		if confidenceRank(c.Confidence) > confidenceRank(ceiling) {
			out.Claims[i].Confidence = ceiling
		}
	}
	return out
}

func confidenceRank(c model.Confidence) int {
	switch c {
	case model.ConfidenceHigh:
		return 3
	case model.ConfidenceMedium:
		return 2
	case model.ConfidenceLow:
		return 1
	}
	return 0
}
