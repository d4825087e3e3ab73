package model

// Confidence is the model's self-reported certainty for a claim or answer
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// AnswerType classifies how well the documents cover the question.
// The escalation gate pattern-matches on this closed set; free-form
// strings from the model are rejected at parse time.
type AnswerType string

const (
	AnswerAnswerable     AnswerType = "ANSWERABLE"
	AnswerPartial        AnswerType = "PARTIAL"
	AnswerNotInDocuments AnswerType = "NOT_IN_DOCUMENTS"
	AnswerAmbiguous      AnswerType = "AMBIGUOUS"
	AnswerInterpretation AnswerType = "REQUIRES_INTERPRETATION"
)

// ValidAnswerType reports whether s is one of the closed answer types.
func ValidAnswerType(s string) bool {
	switch AnswerType(s) {
	case AnswerAnswerable, AnswerPartial, AnswerNotInDocuments,
		AnswerAmbiguous, AnswerInterpretation:
		return true
	}
	return false
}

// ValidConfidence reports whether s is a known confidence level.
func ValidConfidence(s string) bool {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Claim is one cited factual assertion inside a generated answer
type Claim struct {
	ClaimText        string     `json:"claim_text"`        // The factual statement
	SectionReference string     `json:"section_reference"` // e.g. "Section 7.6" or "Article VIII.I"
	SourceQuote      string     `json:"source_quote"`      // Verbatim span the model asserts exists
	Confidence       Confidence `json:"confidence"`
	Verified         bool       `json:"verified"`    // Set by the citation verifier, never by the model
	MatchScore       float64    `json:"match_score"` // Best fuzzy-match similarity found (0-1)
}

// GenerationResult is the structured output of one generation call,
// possibly annotated by the citation verifier and verification stage.
// Downstream stages never mutate a result in place; they derive a copy.
type GenerationResult struct {
	Reasoning          string     `json:"reasoning"` // Diagnostic only, never shown to the tenant
	AnswerType         AnswerType `json:"answer_type"`
	Claims             []Claim    `json:"claims"`
	AnswerText         string     `json:"answer_text"`
	OverallConfidence  Confidence `json:"overall_confidence"`
	AnswerCompleteness string     `json:"answer_completeness"` // FULL, PARTIAL, NONE
	UnansweredParts    string     `json:"unanswered_parts"`
	ShouldEscalate     bool       `json:"should_escalate"`
	EscalationReason   string     `json:"escalation_reason"`
	SectionsReviewed   []string   `json:"sections_reviewed"`
}

// Clone returns a deep copy so annotation passes can derive a new result
// without mutating the original.
func (r GenerationResult) Clone() GenerationResult {
	out := r
	out.Claims = make([]Claim, len(r.Claims))
	copy(out.Claims, r.Claims)
	out.SectionsReviewed = make([]string, len(r.SectionsReviewed))
	copy(out.SectionsReviewed, r.SectionsReviewed)
	return out
}

// HasUnverifiedClaims reports whether any claim failed citation verification.
func (r GenerationResult) HasUnverifiedClaims() bool {
	for _, c := range r.Claims {
		if !c.Verified {
			return true
		}
	}
	return false
}
