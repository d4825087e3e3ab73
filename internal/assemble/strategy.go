// Package assemble decides the context strategy for a community and
// builds the ordered text context handed to generation.
package assemble

// Mode is the context strategy for one pipeline run.
type Mode string

const (
	// ModeFullContext passes the entire document corpus unfiltered.
	// Below the token threshold this eliminates a whole class of
	// retrieval recall errors at acceptable cost.
	ModeFullContext Mode = "FULL_CONTEXT"

	// ModeRetrieval runs hybrid retrieval and passes only the selected
	// chunks.
	ModeRetrieval Mode = "RETRIEVAL"
)

// SelectMode picks the strategy from the community's total indexed token
// count. The threshold is a hard constant from configuration, not
// learned. Pure function; no error conditions.
func SelectMode(totalTokens, fullContextMaxTokens int) Mode {
	if totalTokens <= fullContextMaxTokens {
		return ModeFullContext
	}
	return ModeRetrieval
}
