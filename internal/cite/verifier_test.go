package cite

import (
	"testing"

	"github.com/covenanthq/covenant/internal/model"
)

const sourceText = `Section 7.6 Pets and Animals.

Owners may keep no more than two (2) domesticated pets per Unit.
Dogs must be leashed at all times in Common Areas. No livestock,
poultry, or exotic animals of any kind shall be kept on any Lot.

Section 8.1 Vehicle Restrictions.

No commercial vehicles, recreational vehicles, or trailers may be
parked overnight on any street within the Community.`

func newTestVerifier() *Verifier {
	return NewVerifier(model.CitationConfig{
		SimilarityThreshold: 0.85,
		MinQuoteLength:      10,
	})
}

func TestMatch_ExactQuote(t *testing.T) {
	v := newTestVerifier()
	score := v.Match("Owners may keep no more than two (2) domesticated pets per Unit.", sourceText)
	if score != 1 {
		t.Errorf("exact quote: expected score 1, got %v", score)
	}
}

func TestMatch_CaseAndWhitespaceInsensitive(t *testing.T) {
	v := newTestVerifier()
	score := v.Match("OWNERS MAY KEEP   no more than\ntwo (2) domesticated pets per unit.", sourceText)
	if score != 1 {
		t.Errorf("normalized quote: expected score 1, got %v", score)
	}
}

func TestMatch_FabricatedQuote(t *testing.T) {
	v := newTestVerifier()
	score := v.Match("The speed limit within the community is 25 mph at all times.", sourceText)
	if score >= 0.85 {
		t.Errorf("fabricated quote scored %v, would be verified", score)
	}
}

func TestMatch_MinorTranscriptionError(t *testing.T) {
	// One dropped word; still recognizably the same sentence.
	v := newTestVerifier()
	score := v.Match("Owners may keep no more than two domesticated pets per Unit.", sourceText)
	if score < 0.85 {
		t.Errorf("near-verbatim quote scored %v, expected >= 0.85", score)
	}
}

func TestMatch_ShortQuoteNeverVerifies(t *testing.T) {
	v := newTestVerifier()
	if score := v.Match("Pets", sourceText); score != 0 {
		t.Errorf("short quote: expected 0, got %v", score)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	v := newTestVerifier()
	quote := "Dogs must be leashed at all times in Common Areas."
	first := v.Match(quote, sourceText)
	for i := 0; i < 10; i++ {
		if got := v.Match(quote, sourceText); got != first {
			t.Fatalf("match not deterministic: %v vs %v", got, first)
		}
	}
}

func TestVerifyClaims_AnnotatesWithoutMutating(t *testing.T) {
	v := newTestVerifier()
	claims := []model.Claim{
		{ClaimText: "real", SourceQuote: "Dogs must be leashed at all times in Common Areas."},
		{ClaimText: "fake", SourceQuote: "All tenants must register pets with the city annually."},
	}

	out := v.VerifyClaims(claims, sourceText)
	if len(out) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(out))
	}
	if !out[0].Verified || out[0].MatchScore != 1 {
		t.Errorf("verbatim claim should verify, got verified=%v score=%v", out[0].Verified, out[0].MatchScore)
	}
	if out[1].Verified {
		t.Errorf("fabricated claim should not verify, score %v", out[1].MatchScore)
	}

	// Input slice must be untouched.
	if claims[0].Verified || claims[0].MatchScore != 0 {
		t.Error("input claims were mutated")
	}
}

func TestVerifyClaims_EmptySource(t *testing.T) {
	v := newTestVerifier()
	claims := []model.Claim{
		{SourceQuote: "Dogs must be leashed at all times in Common Areas."},
	}

	out := v.VerifyClaims(claims, "   ")
	if out[0].Verified {
		t.Error("claim against empty source must be unverified")
	}
	if out[0].MatchScore != 0 {
		t.Errorf("expected 0 score, got %v", out[0].MatchScore)
	}
}

func TestNormalize(t *testing.T) {
	got := normalize("  Hello\n\tWORLD   again ")
	if got != "hello world again" {
		t.Errorf("expected %q, got %q", "hello world again", got)
	}
}
