// Package cite implements deterministic citation verification: fuzzy
// matching each claimed quote against the source text actually supplied
// to generation. No model call involved; this step exists to catch fabricated or
// misquoted text that a model can produce even under a citation-mandatory
// prompt.
package cite

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/covenanthq/covenant/internal/model"
)

// earlyExitScore stops the sliding-window scan once a match this good is
// found; anything above it is already comfortably over any sane
// threshold.
const earlyExitScore = 0.95

// Verifier checks claims against source text. Pure and side-effect-free:
// the same quote and source always produce the same verdict.
type Verifier struct {
	threshold float64
	minQuote  int
	metric    *metrics.SmithWatermanGotoh
}

// NewVerifier creates a verifier with the given thresholds. Window
// scoring uses Smith-Waterman-Gotoh local alignment, which normalizes by
// the quote length: a verbatim quote inside a wider window still scores
// 1, and small transcription errors degrade gracefully.
func NewVerifier(cfg model.CitationConfig) *Verifier {
	swg := metrics.NewSmithWatermanGotoh()
	swg.CaseSensitive = false
	return &Verifier{
		threshold: cfg.SimilarityThreshold,
		minQuote:  cfg.MinQuoteLength,
		metric:    swg,
	}
}

// VerifyClaims returns an annotated copy of claims with Verified and
// MatchScore set per claim. The input slice is never mutated.
func (v *Verifier) VerifyClaims(claims []model.Claim, sourceText string) []model.Claim {
	out := make([]model.Claim, len(claims))
	copy(out, claims)

	if strings.TrimSpace(sourceText) == "" {
		for i := range out {
			out[i].Verified = false
			out[i].MatchScore = 0
		}
		return out
	}

	doc := normalize(sourceText)
	for i, c := range out {
		score := v.match(c.SourceQuote, doc)
		out[i].MatchScore = score
		out[i].Verified = score >= v.threshold
	}
	return out
}

// Match scores a single quote against source text, 0 to 1. Exposed for
// the gate's reproducibility tests.
func (v *Verifier) Match(quote, sourceText string) float64 {
	return v.match(quote, normalize(sourceText))
}

// match expects doc already normalized.
func (v *Verifier) match(quote, doc string) float64 {
	q := normalize(quote)
	if len(q) < v.minQuote {
		return 0
	}

	// Exact substring is the common case for a model that actually
	// copied the text.
	if strings.Contains(doc, q) {
		return 1
	}

	return v.slidingWindow(q, doc)
}

// slidingWindow finds the best similarity between the quote and any
// window of comparable length in the document. Step size scales with
// quote length; the window is slightly wider than the quote to absorb
// insertions.
func (v *Verifier) slidingWindow(quote, doc string) float64 {
	qLen := len(quote)
	if qLen == 0 || len(doc) < qLen {
		return 0
	}

	step := qLen / 4
	if step < 1 {
		step = 1
	}
	window := qLen + qLen/3

	best := 0.0
	for i := 0; i+qLen <= len(doc); i += step {
		end := i + window
		if end > len(doc) {
			end = len(doc)
		}
		score := strutil.Similarity(quote, doc[i:end], v.metric)
		if score > best {
			best = score
			if best >= earlyExitScore {
				return best
			}
		}
	}
	return best
}

// normalize lowercases and collapses all runs of whitespace to single
// spaces, so line wrapping and casing never defeat a verbatim quote.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
