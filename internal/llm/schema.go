package llm

import (
	"encoding/json"
	"fmt"

	"github.com/covenanthq/covenant/internal/model"
)

// responseSchema is the strict JSON schema both model calls must satisfy.
// Structured outputs reject free-form responses at the API level; parse
// validation below catches anything that still slips through.
var responseSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "reasoning": {
      "type": "string",
      "description": "Step-by-step thinking about the question and what the documents say. Not shown to the tenant."
    },
    "answer_type": {
      "type": "string",
      "enum": ["ANSWERABLE", "PARTIAL", "NOT_IN_DOCUMENTS", "AMBIGUOUS", "REQUIRES_INTERPRETATION"]
    },
    "claims": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "claim_text": {"type": "string", "description": "The factual statement"},
          "section_reference": {"type": "string", "description": "e.g. 'Section 7.6' or 'Article VIII.I'"},
          "source_quote": {"type": "string", "description": "EXACT text from the document"},
          "confidence": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]}
        },
        "required": ["claim_text", "section_reference", "source_quote", "confidence"],
        "additionalProperties": false
      }
    },
    "answer_text": {
      "type": "string",
      "description": "The readable email response with inline citations"
    },
    "overall_confidence": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
    "answer_completeness": {"type": "string", "enum": ["FULL", "PARTIAL", "NONE"]},
    "unanswered_parts": {
      "type": "string",
      "description": "What parts of the question the documents don't cover"
    },
    "should_escalate": {"type": "boolean"},
    "escalation_reason": {
      "type": "string",
      "description": "Why this should be escalated (empty if not escalating)"
    },
    "sections_reviewed": {
      "type": "array",
      "items": {"type": "string"},
      "description": "All section/article references examined"
    }
  },
  "required": [
    "reasoning", "answer_type", "claims", "answer_text",
    "overall_confidence", "answer_completeness", "unanswered_parts",
    "should_escalate", "escalation_reason", "sections_reviewed"
  ],
  "additionalProperties": false
}`)

// responsePayload is the wire shape of a model response.
type responsePayload struct {
	Reasoning          string         `json:"reasoning"`
	AnswerType         string         `json:"answer_type"`
	Claims             []claimPayload `json:"claims"`
	AnswerText         string         `json:"answer_text"`
	OverallConfidence  string         `json:"overall_confidence"`
	AnswerCompleteness string         `json:"answer_completeness"`
	UnansweredParts    string         `json:"unanswered_parts"`
	ShouldEscalate     bool           `json:"should_escalate"`
	EscalationReason   string         `json:"escalation_reason"`
	SectionsReviewed   []string       `json:"sections_reviewed"`
}

type claimPayload struct {
	ClaimText        string `json:"claim_text"`
	SectionReference string `json:"section_reference"`
	SourceQuote      string `json:"source_quote"`
	Confidence       string `json:"confidence"`
}

// parseResponse decodes and validates model output into the closed
// domain types. Any enum outside the closed set is a schema violation,
// never a silently-accepted free string.
func parseResponse(raw string) (model.GenerationResult, error) {
	var p responsePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.GenerationResult{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if !model.ValidAnswerType(p.AnswerType) {
		return model.GenerationResult{}, fmt.Errorf("%w: unknown answer_type %q", ErrSchema, p.AnswerType)
	}
	if !model.ValidConfidence(p.OverallConfidence) {
		return model.GenerationResult{}, fmt.Errorf("%w: unknown overall_confidence %q", ErrSchema, p.OverallConfidence)
	}

	claims := make([]model.Claim, 0, len(p.Claims))
	for _, c := range p.Claims {
		if !model.ValidConfidence(c.Confidence) {
			return model.GenerationResult{}, fmt.Errorf("%w: unknown claim confidence %q", ErrSchema, c.Confidence)
		}
		claims = append(claims, model.Claim{
			ClaimText:        c.ClaimText,
			SectionReference: c.SectionReference,
			SourceQuote:      c.SourceQuote,
			Confidence:       model.Confidence(c.Confidence),
		})
	}

	return model.GenerationResult{
		Reasoning:          p.Reasoning,
		AnswerType:         model.AnswerType(p.AnswerType),
		Claims:             claims,
		AnswerText:         p.AnswerText,
		OverallConfidence:  model.Confidence(p.OverallConfidence),
		AnswerCompleteness: p.AnswerCompleteness,
		UnansweredParts:    p.UnansweredParts,
		ShouldEscalate:     p.ShouldEscalate,
		EscalationReason:   p.EscalationReason,
		SectionsReviewed:   p.SectionsReviewed,
	}, nil
}
