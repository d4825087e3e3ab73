package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/covenanthq/covenant/internal/model"
)

func TestNeedsVerification(t *testing.T) {
	base := model.GenerationResult{
		AnswerType:        model.AnswerAnswerable,
		OverallConfidence: model.ConfidenceHigh,
		Claims: []model.Claim{
			{ClaimText: "a", Verified: true},
		},
	}

	if NeedsVerification(base) {
		t.Error("verified high-confidence answerable result must skip verification")
	}

	unverified := base.Clone()
	unverified.Claims[0].Verified = false
	if !NeedsVerification(unverified) {
		t.Error("unverified claim must trigger verification")
	}

	medium := base.Clone()
	medium.OverallConfidence = model.ConfidenceMedium
	if !NeedsVerification(medium) {
		t.Error("medium confidence must trigger verification")
	}

	partial := base.Clone()
	partial.AnswerType = model.AnswerPartial
	if !NeedsVerification(partial) {
		t.Error("partial answer must trigger verification")
	}
}

func TestNarrow_ConfidenceNeverUpgrades(t *testing.T) {
	initial := model.GenerationResult{
		OverallConfidence: model.ConfidenceMedium,
		Claims: []model.Claim{
			{ClaimText: "shared", Confidence: model.ConfidenceMedium},
		},
	}
	revised := model.GenerationResult{
		OverallConfidence: model.ConfidenceHigh, // attempted upgrade
		Claims: []model.Claim{
			{ClaimText: "shared", Confidence: model.ConfidenceHigh}, // attempted upgrade
		},
	}

	out := narrow(initial, revised)
	if out.OverallConfidence != model.ConfidenceMedium {
		t.Errorf("overall confidence upgraded to %v", out.OverallConfidence)
	}
	if out.Claims[0].Confidence != model.ConfidenceMedium {
		t.Errorf("claim confidence upgraded to %v", out.Claims[0].Confidence)
	}
}

func TestNarrow_RewordedClaimKeepsCeiling(t *testing.T) {
	// The verification prompt invites the model to fix claim wording, so
	// a revised claim may share only its quote with the initial one. The
	// clamp must still hold.
	initial := model.GenerationResult{
		OverallConfidence: model.ConfidenceMedium,
		Claims: []model.Claim{
			{
				ClaimText:   "Pets are limited to two per unit",
				SourceQuote: "no more than two (2) domesticated pets",
				Confidence:  model.ConfidenceLow,
			},
		},
	}
	revised := model.GenerationResult{
		OverallConfidence: model.ConfidenceMedium,
		Claims: []model.Claim{
			{
				ClaimText:   "Each unit may keep at most two pets",
				SourceQuote: "no more than two (2) domesticated pets",
				Confidence:  model.ConfidenceHigh,
			},
		},
	}

	out := narrow(initial, revised)
	if out.Claims[0].Confidence != model.ConfidenceLow {
		t.Errorf("reworded claim upgraded to %v, want LOW", out.Claims[0].Confidence)
	}
}

func TestNarrow_NewClaimCappedAtInitialMaximum(t *testing.T) {
	initial := model.GenerationResult{
		OverallConfidence: model.ConfidenceHigh,
		Claims: []model.Claim{
			{ClaimText: "a", SourceQuote: "quote a", Confidence: model.ConfidenceMedium},
			{ClaimText: "b", SourceQuote: "quote b", Confidence: model.ConfidenceLow},
		},
	}
	revised := model.GenerationResult{
		OverallConfidence: model.ConfidenceMedium,
		Claims: []model.Claim{
			{ClaimText: "c", SourceQuote: "quote c", Confidence: model.ConfidenceHigh},
		},
	}

	out := narrow(initial, revised)
	if out.Claims[0].Confidence != model.ConfidenceMedium {
		t.Errorf("unmatched claim got %v, want cap at the initial maximum MEDIUM", out.Claims[0].Confidence)
	}
}

func TestNarrow_DowngradeAllowed(t *testing.T) {
	initial := model.GenerationResult{OverallConfidence: model.ConfidenceHigh}
	revised := model.GenerationResult{OverallConfidence: model.ConfidenceLow}

	out := narrow(initial, revised)
	if out.OverallConfidence != model.ConfidenceLow {
		t.Errorf("expected downgrade to stick, got %v", out.OverallConfidence)
	}
}

func TestNarrow_ShouldEscalateOnlySets(t *testing.T) {
	initial := model.GenerationResult{ShouldEscalate: true, EscalationReason: "initial concern"}
	revised := model.GenerationResult{ShouldEscalate: false}

	out := narrow(initial, revised)
	if !out.ShouldEscalate {
		t.Error("verification must not clear should_escalate")
	}
	if out.EscalationReason != "initial concern" {
		t.Errorf("expected initial reason preserved, got %q", out.EscalationReason)
	}
}

func TestNarrow_ResetsVerificationAnnotations(t *testing.T) {
	initial := model.GenerationResult{
		Claims: []model.Claim{{ClaimText: "a", Verified: true, MatchScore: 1}},
	}
	revised := model.GenerationResult{
		Claims: []model.Claim{{ClaimText: "a", Verified: true, MatchScore: 1}},
	}

	out := narrow(initial, revised)
	if out.Claims[0].Verified || out.Claims[0].MatchScore != 0 {
		t.Error("revised claims must be re-verified deterministically, not trusted")
	}
}

func TestNarrow_DroppedClaimsStayDropped(t *testing.T) {
	initial := model.GenerationResult{
		Claims: []model.Claim{
			{ClaimText: "kept"},
			{ClaimText: "dropped"},
		},
	}
	revised := model.GenerationResult{
		Claims: []model.Claim{{ClaimText: "kept"}},
	}

	out := narrow(initial, revised)
	if len(out.Claims) != 1 || out.Claims[0].ClaimText != "kept" {
		t.Errorf("expected only the kept claim, got %v", out.Claims)
	}
}

func TestVerify_FailureReturnsInitial(t *testing.T) {
	api := &fakeChat{errs: []error{errors.New("down"), errors.New("down")}, responses: []string{"", ""}}
	v := newVerifier(api, testOpenAIConfig(), nil, nil)

	initial := model.GenerationResult{
		AnswerType:        model.AnswerPartial,
		OverallConfidence: model.ConfidenceMedium,
		AnswerText:        "partial answer",
	}
	got, err := v.Verify(context.Background(), VerifyRequest{Question: "q", Initial: initial})
	if err == nil {
		t.Fatal("expected error from failed verification call")
	}
	if got.AnswerText != "partial answer" {
		t.Errorf("failed verification must return the initial result, got %+v", got)
	}
}

func TestVerify_MergesUnderNarrowing(t *testing.T) {
	api := &fakeChat{responses: []string{validResponse}}
	v := newVerifier(api, testOpenAIConfig(), nil, nil)

	initial := model.GenerationResult{
		AnswerType:        model.AnswerAnswerable,
		OverallConfidence: model.ConfidenceMedium, // below the revision's HIGH
		Claims: []model.Claim{
			{ClaimText: "Two pets are allowed per unit", Confidence: model.ConfidenceMedium},
		},
	}
	got, err := v.Verify(context.Background(), VerifyRequest{Question: "q", Initial: initial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OverallConfidence != model.ConfidenceMedium {
		t.Errorf("revision upgraded overall confidence to %v", got.OverallConfidence)
	}
	if got.Claims[0].Confidence != model.ConfidenceMedium {
		t.Errorf("revision upgraded claim confidence to %v", got.Claims[0].Confidence)
	}
}
