package llm

import (
	"errors"
	"testing"

	"github.com/covenanthq/covenant/internal/model"
)

const validResponse = `{
  "reasoning": "Section 7.6 covers pets directly.",
  "answer_type": "ANSWERABLE",
  "claims": [
    {
      "claim_text": "Two pets are allowed per unit",
      "section_reference": "Section 7.6",
      "source_quote": "no more than two (2) domesticated pets per Unit",
      "confidence": "HIGH"
    }
  ],
  "answer_text": "Yes, you may keep up to two pets.",
  "overall_confidence": "HIGH",
  "answer_completeness": "FULL",
  "unanswered_parts": "",
  "should_escalate": false,
  "escalation_reason": "",
  "sections_reviewed": ["Section 7.6"]
}`

func TestParseResponse_Valid(t *testing.T) {
	r, err := parseResponse(validResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.AnswerType != model.AnswerAnswerable {
		t.Errorf("expected ANSWERABLE, got %v", r.AnswerType)
	}
	if r.OverallConfidence != model.ConfidenceHigh {
		t.Errorf("expected HIGH, got %v", r.OverallConfidence)
	}
	if len(r.Claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(r.Claims))
	}
	if r.Claims[0].SectionReference != "Section 7.6" {
		t.Errorf("unexpected section reference %q", r.Claims[0].SectionReference)
	}
	if r.Claims[0].Verified {
		t.Error("parsed claims must never arrive pre-verified")
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	_, err := parseResponse("not json at all")
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestParseResponse_UnknownAnswerType(t *testing.T) {
	raw := `{"reasoning":"","answer_type":"MAYBE","claims":[],"answer_text":"",
	  "overall_confidence":"HIGH","answer_completeness":"FULL","unanswered_parts":"",
	  "should_escalate":false,"escalation_reason":"","sections_reviewed":[]}`

	_, err := parseResponse(raw)
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema for unknown answer_type, got %v", err)
	}
}

func TestParseResponse_UnknownConfidence(t *testing.T) {
	raw := `{"reasoning":"","answer_type":"ANSWERABLE","claims":[],"answer_text":"",
	  "overall_confidence":"CERTAIN","answer_completeness":"FULL","unanswered_parts":"",
	  "should_escalate":false,"escalation_reason":"","sections_reviewed":[]}`

	_, err := parseResponse(raw)
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema for unknown confidence, got %v", err)
	}
}

func TestParseResponse_UnknownClaimConfidence(t *testing.T) {
	raw := `{"reasoning":"","answer_type":"ANSWERABLE","claims":[
	  {"claim_text":"x","section_reference":"s","source_quote":"q","confidence":"SURE"}],
	  "answer_text":"","overall_confidence":"HIGH","answer_completeness":"FULL",
	  "unanswered_parts":"","should_escalate":false,"escalation_reason":"","sections_reviewed":[]}`

	_, err := parseResponse(raw)
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema for unknown claim confidence, got %v", err)
	}
}
