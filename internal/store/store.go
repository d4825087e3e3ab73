// Package store defines the read/write boundaries between the answer
// pipeline and its persistence collaborators. The pipeline consumes
// already-chunked, already-embedded documents and prior conversation
// turns; it produces outcomes. Everything else about storage is someone
// else's problem.
package store

import (
	"context"
	"errors"

	"github.com/covenanthq/covenant/internal/model"
)

// ErrNotFound is returned when a community or conversation does not exist.
var ErrNotFound = errors.New("store: not found")

// ChunkStore is the read-only view over a community's indexed documents.
type ChunkStore interface {
	// Community returns the community record, including its reply policy.
	Community(ctx context.Context, communityID string) (model.Community, error)

	// Chunks returns all chunks for a community ordered by document and
	// chunk index.
	Chunks(ctx context.Context, communityID string) ([]model.Chunk, error)

	// FullText returns the concatenated full text of all documents plus
	// the community's total indexed token count.
	FullText(ctx context.Context, communityID string) (text string, totalTokens int, err error)
}

// ConversationStore owns threading state. Ensure resolves an inbound
// thread identifier to its conversation, creating one for a fresh thread.
type ConversationStore interface {
	// Ensure returns the conversation for threadID, creating it if absent.
	// An empty threadID always creates a new conversation.
	Ensure(ctx context.Context, communityID, threadID, senderEmail, subject string) (model.Conversation, error)

	// RecentTurns returns up to limit prior turns for the thread, oldest
	// first. A fresh thread has no turns.
	RecentTurns(ctx context.Context, threadID string, limit int) ([]model.ConversationTurn, error)

	// AppendTurn appends one turn to the conversation. Turns are
	// append-only; nothing here is ever rewritten.
	AppendTurn(ctx context.Context, conversationID string, turn model.ConversationTurn) error

	// AppendOutcome records the terminal pipeline outcome and updates the
	// conversation status.
	AppendOutcome(ctx context.Context, conversationID string, outcome model.PipelineOutcome) error
}
