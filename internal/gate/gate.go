// Package gate implements the deterministic escalation evaluator: eight
// rules over a generation result, any of which routes the draft to human
// review. This gate is the single source of truth for the safety
// property that no uncited or low-confidence content reaches a tenant
// unreviewed.
package gate

import (
	"strings"

	"github.com/covenanthq/covenant/internal/model"
)

// Rule identifies one escalation rule. The numbering is stable and shows
// up in escalation reasons for operator legibility.
type Rule int

const (
	RuleModelFlagged       Rule = 1 // should_escalate set by the model
	RuleNotInDocuments     Rule = 2 // answer_type NOT_IN_DOCUMENTS
	RuleLowConfidence      Rule = 3 // overall_confidence LOW
	RuleInterpretation     Rule = 4 // answer_type REQUIRES_INTERPRETATION
	RuleUnverifiedCitation Rule = 5 // any claim unverified after verification
	RuleLowClaimConfidence Rule = 6 // any claim with LOW confidence
	RuleAmbiguous          Rule = 7 // answer_type AMBIGUOUS
	RuleUncitedAnswer      Rule = 8 // zero claims but non-empty answer text
)

// Decision is the gate's verdict for one generation result.
type Decision struct {
	Status model.Status
	Fired  []Rule // All rules that fired, in rule order
	Reason string // Reason from the first firing rule; empty for draft_ready
}

// Evaluate applies all eight rules. The first firing rule (in the fixed
// order above) supplies the reported reason; that ordering is a
// debuggability choice, not a priority ranking among causes.
func Evaluate(r model.GenerationResult) Decision {
	var fired []Rule
	var reasons []string

	add := func(rule Rule, reason string) {
		fired = append(fired, rule)
		reasons = append(reasons, reason)
	}

	if r.ShouldEscalate {
		why := r.EscalationReason
		if why == "" {
			why = "unspecified"
		}
		add(RuleModelFlagged, "model flagged: "+why)
	}
	if r.AnswerType == model.AnswerNotInDocuments {
		add(RuleNotInDocuments, "answer not found in documents")
	}
	if r.OverallConfidence == model.ConfidenceLow {
		add(RuleLowConfidence, "low overall confidence")
	}
	if r.AnswerType == model.AnswerInterpretation {
		add(RuleInterpretation, "requires interpretation")
	}
	if r.HasUnverifiedClaims() {
		add(RuleUnverifiedCitation, "unverified citation(s) after verification pass")
	}
	for _, c := range r.Claims {
		if c.Confidence == model.ConfidenceLow {
			add(RuleLowClaimConfidence, "claim with low confidence")
			break
		}
	}
	if r.AnswerType == model.AnswerAmbiguous {
		add(RuleAmbiguous, "ambiguous answer")
	}
	if len(r.Claims) == 0 && strings.TrimSpace(r.AnswerText) != "" {
		add(RuleUncitedAnswer, "no citations backing the answer")
	}

	if len(fired) == 0 {
		return Decision{Status: model.StatusDraftReady}
	}
	return Decision{
		Status: model.StatusNeedsHuman,
		Fired:  fired,
		Reason: reasons[0],
	}
}
