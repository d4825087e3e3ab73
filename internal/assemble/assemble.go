package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/util"
)

// Context is the ordered text context plus metadata handed to the
// generation stage.
type Context struct {
	Mode        Mode
	Text        string                   // Document text, position-ordered
	Chunks      []model.Chunk            // Selected chunks (empty in full-context mode)
	TotalTokens int                      // Token count of Text
	History     []model.ConversationTurn // Prior turns, oldest first
}

// FullContext wraps the whole corpus as the context.
func FullContext(text string, totalTokens int, history []model.ConversationTurn) Context {
	return Context{
		Mode:        ModeFullContext,
		Text:        text,
		TotalTokens: totalTokens,
		History:     history,
	}
}

// FromCandidates builds a retrieval-mode context. Candidates arrive
// relevance-ordered; they are re-sorted by document position so the model
// sees logically contiguous legal text, never score order.
func FromCandidates(candidates []model.RetrievalCandidate, history []model.ConversationTurn) Context {
	chunks := make([]model.Chunk, 0, len(candidates))
	for _, c := range candidates {
		chunks = append(chunks, c.Chunk)
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	var parts []string
	for _, c := range chunks {
		if loc := c.Locator(); loc != "" {
			parts = append(parts, fmt.Sprintf("[%s]\n%s", loc, c.Content))
		} else {
			parts = append(parts, c.Content)
		}
	}
	text := strings.Join(parts, "\n\n---\n\n")

	return Context{
		Mode:        ModeRetrieval,
		Text:        text,
		Chunks:      chunks,
		TotalTokens: util.CountTokens(text),
		History:     history,
	}
}
