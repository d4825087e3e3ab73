// Package pipeline orchestrates one answer run per inbound message:
// strategy selection, retrieval, generation, deterministic citation
// verification, the conditional verification pass, and the escalation
// gate. The terminal contract is "always produce a PipelineOutcome": an
// unhandled failure that drops a tenant email is worse than an
// over-escalation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/covenanthq/covenant/internal/assemble"
	"github.com/covenanthq/covenant/internal/cache"
	"github.com/covenanthq/covenant/internal/cite"
	"github.com/covenanthq/covenant/internal/gate"
	"github.com/covenanthq/covenant/internal/llm"
	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/retrieve"
	"github.com/covenanthq/covenant/internal/store"
)

// Message is one inbound tenant message with its resolved community.
// Push and polling intake both reduce to this shape; ID is the
// deduplicated message identifier from the mail provider.
type Message struct {
	ID          string
	CommunityID string
	ThreadID    string // Empty for a fresh question
	SenderEmail string
	Subject     string
	Body        string
	TenantName  string // Optional, for a personalized reply
}

// Generator is the generation stage boundary, satisfied by
// llm.Generator.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (model.GenerationResult, error)
}

// ReVerifier is the verification stage boundary, satisfied by
// llm.Verifier.
type ReVerifier interface {
	Verify(ctx context.Context, req llm.VerifyRequest) (model.GenerationResult, error)
}

// Pipeline runs the full answer pipeline. Safe for concurrent use;
// distinct conversations run in parallel, same-thread messages serialize
// on the per-conversation lock.
type Pipeline struct {
	chunks    store.ChunkStore
	convs     store.ConversationStore
	engine    *retrieve.Engine
	generator Generator
	verifier  ReVerifier
	citer     *cite.Verifier
	outcomes  cache.Cache // idempotency; nil disables redelivery dedup
	locks     *threadLocks
	cfg       model.Config
	log       *zap.Logger
}

// New creates a pipeline from its collaborators.
func New(cfg model.Config, chunks store.ChunkStore, convs store.ConversationStore,
	engine *retrieve.Engine, generator Generator, verifier ReVerifier,
	outcomes cache.Cache, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		chunks:    chunks,
		convs:     convs,
		engine:    engine,
		generator: generator,
		verifier:  verifier,
		citer:     cite.NewVerifier(cfg.Citations),
		outcomes:  outcomes,
		locks:     newThreadLocks(),
		cfg:       cfg,
		log:       log,
	}
}

// Run processes one inbound message to a terminal outcome. Re-running
// with the same message ID returns the recorded outcome instead of
// duplicating work.
func (p *Pipeline) Run(ctx context.Context, msg Message) (model.PipelineOutcome, error) {
	log := p.log.With(zap.String("message_id", msg.ID), zap.String("community_id", msg.CommunityID))
	log.Info("pipeline run", zap.String("state", string(model.StateReceived)))

	if out, ok := p.cachedOutcome(msg.ID); ok {
		log.Info("duplicate delivery, returning recorded outcome")
		return out, nil
	}

	community, err := p.chunks.Community(ctx, msg.CommunityID)
	if err != nil {
		return p.finishDetached(msg, escalatedOutcome(msg, fmt.Sprintf("community not found: %v", err), "")), nil
	}

	// Per-conversation mutual exclusion: acquired before context
	// assembly, released after outcome persistence. A fresh question has
	// no thread, so it locks on its own message ID and never contends.
	lockKey := msg.ThreadID
	if lockKey == "" {
		lockKey = msg.ID
	}
	release := p.locks.acquire(lockKey)
	defer release()

	// Re-check after the lock: a concurrent redelivery may have finished
	// while this run was waiting.
	if out, ok := p.cachedOutcome(msg.ID); ok {
		return out, nil
	}

	conv, err := p.convs.Ensure(ctx, msg.CommunityID, msg.ThreadID, msg.SenderEmail, msg.Subject)
	if err != nil {
		return p.finishDetached(msg, escalatedOutcome(msg, fmt.Sprintf("conversation store: %v", err), "")), nil
	}

	history, err := p.convs.RecentTurns(ctx, msg.ThreadID, p.cfg.Retrieval.MaxHistoryTurns)
	if err != nil {
		log.Warn("history unavailable, continuing without it", zap.Error(err))
		history = nil
	}

	// The inbound turn goes in before generation so the next same-thread
	// message (serialized behind the lock) sees it.
	if err := p.convs.AppendTurn(ctx, conv.ID, model.ConversationTurn{Role: model.RoleTenant, Text: msg.Body}); err != nil {
		log.Warn("append inbound turn failed", zap.Error(err))
	}

	outcome := p.answer(ctx, msg, conv, community, history, log)

	if err := p.convs.AppendTurn(ctx, conv.ID, model.ConversationTurn{Role: model.RoleAssistant, Text: outcome.AnswerText}); err != nil {
		log.Warn("append draft turn failed", zap.Error(err))
	}
	if err := p.convs.AppendOutcome(ctx, conv.ID, outcome); err != nil {
		log.Warn("append outcome failed", zap.Error(err))
	}
	p.recordOutcome(msg.ID, outcome)

	log.Info("pipeline complete",
		zap.String("status", string(outcome.Status)),
		zap.String("escalation_reason", outcome.EscalationReason))
	return outcome, nil
}

// answer runs the model stages and the gate for one message.
func (p *Pipeline) answer(ctx context.Context, msg Message, conv model.Conversation,
	community model.Community, history []model.ConversationTurn, log *zap.Logger) model.PipelineOutcome {

	fullText, totalTokens, err := p.chunks.FullText(ctx, msg.CommunityID)
	if err != nil {
		return withConversation(escalatedOutcome(msg, fmt.Sprintf("chunk store: %v", err), ""), conv)
	}
	if totalTokens == 0 && fullText == "" {
		out := escalatedOutcome(msg, "no documents available",
			"No documents have been uploaded for this community yet.")
		return withConversation(out, conv)
	}

	mode := assemble.SelectMode(totalTokens, p.cfg.Retrieval.FullContextMaxTokens)
	log.Info("context strategy selected",
		zap.String("state", string(model.StateContextSelected)),
		zap.String("mode", string(mode)),
		zap.Int("total_tokens", totalTokens))

	var asm assemble.Context
	if mode == assemble.ModeFullContext {
		asm = assemble.FullContext(fullText, totalTokens, history)
	} else {
		chunks, err := p.chunks.Chunks(ctx, msg.CommunityID)
		if err != nil {
			return withConversation(escalatedOutcome(msg, fmt.Sprintf("chunk store: %v", err), ""), conv)
		}
		candidates, err := p.engine.Search(ctx, msg.Body, chunks)
		if err != nil {
			return withConversation(escalatedOutcome(msg, fmt.Sprintf("retrieval: %v", err), ""), conv)
		}
		log.Info("retrieval complete",
			zap.String("state", string(model.StateRetrieved)),
			zap.Int("candidates", len(candidates)))
		asm = assemble.FromCandidates(candidates, history)
	}

	result, err := p.generator.Generate(ctx, llm.GenerateRequest{
		Question:    msg.Body,
		ContextText: asm.Text,
		TenantName:  msg.TenantName,
		History:     asm.History,
	})
	if err != nil {
		log.Warn("generation failed after retry, escalating", zap.Error(err))
		result = llm.FailedResult(err)
	}
	log.Info("generation complete",
		zap.String("state", string(model.StateGenerated)),
		zap.String("answer_type", string(result.AnswerType)),
		zap.Int("claims", len(result.Claims)))

	// Deterministic citation verification against the full corpus text,
	// the superset of whatever context the model saw.
	annotated := result.Clone()
	annotated.Claims = p.citer.VerifyClaims(annotated.Claims, fullText)

	if llm.NeedsVerification(annotated) {
		annotated = p.reverify(ctx, msg, annotated, asm, fullText, log)
	}

	decision := gate.Evaluate(annotated)
	log.Info("gate evaluated",
		zap.String("state", string(model.StateGated)),
		zap.String("status", string(decision.Status)),
		zap.Int("rules_fired", len(decision.Fired)))

	return model.PipelineOutcome{
		MessageID:        msg.ID,
		ConversationID:   conv.ID,
		Status:           decision.Status,
		AnswerText:       annotated.AnswerText,
		Citations:        model.CitationsFrom(annotated.Claims),
		EscalationReason: decision.Reason,
		AutoSendEligible: decision.Status == model.StatusDraftReady && community.AutoReplyEnabled,
		Raw:              annotated,
		CompletedAt:      time.Now().UTC(),
	}
}

// reverify runs the conditional second model call on the flagged claims
// and re-verifies citations on whatever came back. Failure keeps the
// initial annotated result; its unverified claims trip the gate anyway.
func (p *Pipeline) reverify(ctx context.Context, msg Message, annotated model.GenerationResult,
	asm assemble.Context, fullText string, log *zap.Logger) model.GenerationResult {

	var flagged []model.Claim
	for _, c := range annotated.Claims {
		if !c.Verified {
			flagged = append(flagged, c)
		}
	}

	revised, err := p.verifier.Verify(ctx, llm.VerifyRequest{
		Question:    msg.Body,
		Initial:     annotated,
		ContextText: asm.Text,
		Flagged:     flagged,
		History:     asm.History,
	})
	if err != nil {
		log.Warn("verification pass failed, keeping initial result", zap.Error(err))
		return annotated
	}

	revised.Claims = p.citer.VerifyClaims(revised.Claims, fullText)
	log.Info("verification pass complete",
		zap.String("state", string(model.StateReverified)),
		zap.Int("claims", len(revised.Claims)))
	return revised
}

// finishDetached records an outcome that never attached to a
// conversation (community missing, store down).
func (p *Pipeline) finishDetached(msg Message, out model.PipelineOutcome) model.PipelineOutcome {
	p.recordOutcome(msg.ID, out)
	return out
}

func (p *Pipeline) cachedOutcome(messageID string) (model.PipelineOutcome, bool) {
	if p.outcomes == nil || messageID == "" {
		return model.PipelineOutcome{}, false
	}
	data, ok := p.outcomes.Get(cache.OutcomeKey(messageID))
	if !ok {
		return model.PipelineOutcome{}, false
	}
	var out model.PipelineOutcome
	if err := json.Unmarshal(data, &out); err != nil {
		return model.PipelineOutcome{}, false
	}
	return out, true
}

func (p *Pipeline) recordOutcome(messageID string, out model.PipelineOutcome) {
	if p.outcomes == nil || messageID == "" {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	_ = p.outcomes.Set(cache.OutcomeKey(messageID), data, p.cfg.Cache.OutcomeTTL)
}

// escalatedOutcome builds a synthetic needs_human outcome for failures
// that prevent the model stages from running at all. The diagnostic
// reason shows up for the admin instead of no response.
func escalatedOutcome(msg Message, reason, answerText string) model.PipelineOutcome {
	return model.PipelineOutcome{
		MessageID:        msg.ID,
		Status:           model.StatusNeedsHuman,
		AnswerText:       answerText,
		Citations:        []model.Citation{},
		EscalationReason: reason,
		CompletedAt:      time.Now().UTC(),
	}
}

func withConversation(out model.PipelineOutcome, conv model.Conversation) model.PipelineOutcome {
	out.ConversationID = conv.ID
	return out
}
