package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/covenanthq/covenant/internal/model"
)

const generateSystemPrompt = `You are an AI assistant for a property management company. Your job is to answer tenant questions by citing their community's governing documents (CC&Rs, bylaws, rules).

CRITICAL RULES - FOLLOW THESE EXACTLY:

1. ONLY state facts that are EXPLICITLY written in the provided documents. Never infer, guess, or use outside knowledge.

2. Every factual claim MUST include:
   - The EXACT quote from the document (source_quote)
   - The specific section/article reference (section_reference)
   - Your confidence level (HIGH/MEDIUM/LOW)

3. If the answer is NOT in the documents:
   - Set answer_type to "NOT_IN_DOCUMENTS"
   - Set should_escalate to true
   - Say "This topic is not addressed in the community's governing documents. I'm forwarding your question to your property manager."
   - Do NOT make up rules, hours, amounts, or policies

4. NEVER say "since it's not mentioned, it must be allowed" - that is WRONG. Absence of a rule does NOT mean permission. Distinguish "explicitly prohibited", "explicitly permitted", and "not addressed"; say when something is not addressed.

5. If the answer is ambiguous or requires interpretation:
   - Set answer_type to "AMBIGUOUS" or "REQUIRES_INTERPRETATION"
   - Set should_escalate to true
   - Present what the documents DO say, then note the ambiguity

6. For the answer_text: write a professional, friendly email response. Include inline citations like "(Section 7.6)" after relevant statements. Address the tenant directly.

7. Think step-by-step in the "reasoning" field before answering. This helps you avoid mistakes.

8. Be precise about numbers, dates, and requirements. Quote them exactly.`

const verifySystemPrompt = `You are a verification assistant. You are given:
1. A tenant's question
2. An AI-generated response with claims and citations
3. The actual source document text

Your job: verify each claim against the source text. For each claim:
- Check if the source_quote actually exists in the documents
- Check if the claim_text accurately represents what the document says
- Check if the section_reference is correct

If any claim is unsupported, remove it or fix it. If the overall answer becomes unreliable after removing unsupported claims, set should_escalate to true.

Be conservative: if in doubt, escalate rather than approve a potentially wrong answer.`

// historyBlock formats prior conversation turns for inclusion in a user
// message. An empty history produces an empty block.
func historyBlock(history []model.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous conversation:\n---\n")
	for _, turn := range history {
		label := "Assistant"
		if turn.Role == model.RoleTenant {
			label = "Tenant"
		}
		fmt.Fprintf(&b, "%s: %q\n", label, turn.Text)
	}
	b.WriteString("---\n\n")
	return b.String()
}

// buildGenerateMessage assembles the user message for the generation call.
func buildGenerateMessage(question, contextText, tenantName string, history []model.ConversationTurn) string {
	greeting := ""
	if tenantName != "" {
		greeting = fmt.Sprintf("The tenant's name is %s. ", tenantName)
	}
	return fmt.Sprintf(`%s%sThe tenant asks:

%q

Here are the community's governing documents:

%s

Answer the tenant's question using ONLY information from these documents. Follow all rules in your system prompt.`,
		greeting, historyBlock(history), question, contextText)
}

// buildVerifyMessage assembles the user message for the verification
// call. Only the flagged claims and their source context go in; the full
// retrieval question has already been answered.
func buildVerifyMessage(question string, initial model.GenerationResult, contextText string, flagged []model.Claim, history []model.ConversationTurn) string {
	initialJSON, _ := json.MarshalIndent(initial, "", "  ")
	flaggedJSON, _ := json.MarshalIndent(flagged, "", "  ")

	return fmt.Sprintf(`%sOriginal question: %q

AI Response to verify:
%s

FLAGGED CLAIMS (these citations could not be verified in the source text):
%s

Source documents:
%s

Please re-verify the response. Remove any unsupported claims, fix any incorrect citations, and update confidence levels. If the answer is no longer reliable after corrections, set should_escalate to true.`,
		historyBlock(history), question, initialJSON, flaggedJSON, contextText)
}
