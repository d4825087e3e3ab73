package model

import "time"

// Status is the terminal disposition of a pipeline run
type Status string

const (
	StatusDraftReady Status = "draft_ready" // Safe to surface; zero escalation rules fired
	StatusNeedsHuman Status = "needs_human" // At least one escalation rule fired
)

// RunState tracks a pipeline run's progress for diagnostics and logging.
// Stages are strictly sequential; retrieval and re-verification are
// conditional and may be skipped.
type RunState string

const (
	StateReceived        RunState = "RECEIVED"
	StateContextSelected RunState = "CONTEXT_SELECTED"
	StateRetrieved       RunState = "RETRIEVED"
	StateGenerated       RunState = "GENERATED"
	StateReverified      RunState = "RE-VERIFIED"
	StateGated           RunState = "GATED"
)

// Citation is the externally rendered view of a verified claim. The core
// guarantees enough structure here for a renderer to build a citation view;
// rendering itself is out of scope.
type Citation struct {
	ClaimText        string     `json:"claim_text"`
	SectionReference string     `json:"section_reference"`
	SourceQuote      string     `json:"source_quote"`
	Confidence       Confidence `json:"confidence"`
	Verified         bool       `json:"verified"`
}

// PipelineOutcome is the terminal artifact of one pipeline run.
// Invariant: StatusNeedsHuman implies a non-empty EscalationReason;
// StatusDraftReady implies zero rules fired and every claim verified.
type PipelineOutcome struct {
	MessageID        string           `json:"message_id"`
	ConversationID   string           `json:"conversation_id,omitempty"`
	Status           Status           `json:"status"`
	AnswerText       string           `json:"answer_text"`
	Citations        []Citation       `json:"citations"`
	EscalationReason string           `json:"escalation_reason,omitempty"` // Present only when escalated
	AutoSendEligible bool             `json:"auto_send_eligible"`          // Never true for needs_human
	Raw              GenerationResult `json:"raw_response"`                // Full annotated model output, for diagnostics
	CompletedAt      time.Time        `json:"completed_at"`
}

// CitationsFrom projects claims into the external citation view.
func CitationsFrom(claims []Claim) []Citation {
	out := make([]Citation, 0, len(claims))
	for _, c := range claims {
		out = append(out, Citation{
			ClaimText:        c.ClaimText,
			SectionReference: c.SectionReference,
			SourceQuote:      c.SourceQuote,
			Confidence:       c.Confidence,
			Verified:         c.Verified,
		})
	}
	return out
}
