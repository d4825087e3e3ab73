package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/covenanthq/covenant/internal/model"
)

// Memory is an in-process implementation of both store interfaces. It
// backs the CLI and tests; production deployments swap in real adapters.
type Memory struct {
	mu            sync.RWMutex
	communities   map[string]model.Community
	documents     map[string][]model.Document // keyed by community ID
	chunks        map[string][]model.Chunk    // keyed by community ID
	conversations map[string]*model.Conversation
	byThread      map[string]string // thread ID -> conversation ID
	turns         map[string][]model.ConversationTurn
	outcomes      map[string][]model.PipelineOutcome
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		communities:   make(map[string]model.Community),
		documents:     make(map[string][]model.Document),
		chunks:        make(map[string][]model.Chunk),
		conversations: make(map[string]*model.Conversation),
		byThread:      make(map[string]string),
		turns:         make(map[string][]model.ConversationTurn),
		outcomes:      make(map[string][]model.PipelineOutcome),
	}
}

// AddCommunity registers a community.
func (m *Memory) AddCommunity(c model.Community) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.communities[c.ID] = c
}

// AddDocument registers a document and its chunks under the document's
// community. Chunks keep their ingestion order.
func (m *Memory) AddDocument(doc model.Document, chunks []model.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.CommunityID] = append(m.documents[doc.CommunityID], doc)
	m.chunks[doc.CommunityID] = append(m.chunks[doc.CommunityID], chunks...)
}

// Communities lists registered communities in no particular order.
func (m *Memory) Communities() []model.Community {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Community, 0, len(m.communities))
	for _, c := range m.communities {
		out = append(out, c)
	}
	return out
}

// ReplaceChunks swaps a community's chunk set, e.g. after embeddings
// were computed for a fixture loaded without them.
func (m *Memory) ReplaceChunks(communityID string, chunks []model.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	replacement := make([]model.Chunk, len(chunks))
	copy(replacement, chunks)
	m.chunks[communityID] = replacement
}

// Community implements ChunkStore.
func (m *Memory) Community(_ context.Context, communityID string) (model.Community, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.communities[communityID]
	if !ok {
		return model.Community{}, ErrNotFound
	}
	return c, nil
}

// Chunks implements ChunkStore. The returned slice is a copy ordered by
// document ID then chunk index.
func (m *Memory) Chunks(_ context.Context, communityID string) ([]model.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.chunks[communityID]
	out := make([]model.Chunk, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

// FullText implements ChunkStore.
func (m *Memory) FullText(_ context.Context, communityID string) (string, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.documents[communityID]
	var total int
	var parts []string
	for _, d := range docs {
		total += d.TotalTokens
		if d.FullText != "" {
			parts = append(parts, d.FullText)
		}
	}
	return joinDocuments(parts), total, nil
}

// Ensure implements ConversationStore.
func (m *Memory) Ensure(_ context.Context, communityID, threadID, senderEmail, subject string) (model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if threadID != "" {
		if id, ok := m.byThread[threadID]; ok {
			return *m.conversations[id], nil
		}
	}
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		ThreadID:    threadID,
		Subject:     subject,
		SenderEmail: senderEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.conversations[conv.ID] = conv
	if threadID != "" {
		m.byThread[threadID] = conv.ID
	}
	return *conv, nil
}

// RecentTurns implements ConversationStore.
func (m *Memory) RecentTurns(_ context.Context, threadID string, limit int) ([]model.ConversationTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byThread[threadID]
	if !ok {
		return nil, nil
	}
	src := m.turns[id]
	if limit > 0 && len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]model.ConversationTurn, len(src))
	copy(out, src)
	return out, nil
}

// AppendTurn implements ConversationStore.
func (m *Memory) AppendTurn(_ context.Context, conversationID string, turn model.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conversationID]; !ok {
		return ErrNotFound
	}
	m.turns[conversationID] = append(m.turns[conversationID], turn)
	return nil
}

// AppendOutcome implements ConversationStore.
func (m *Memory) AppendOutcome(_ context.Context, conversationID string, outcome model.PipelineOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	m.outcomes[conversationID] = append(m.outcomes[conversationID], outcome)
	conv.Status = outcome.Status
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// Outcomes returns recorded outcomes for a conversation, oldest first.
func (m *Memory) Outcomes(conversationID string) []model.PipelineOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.outcomes[conversationID]
	out := make([]model.PipelineOutcome, len(src))
	copy(out, src)
	return out
}

func joinDocuments(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	joined := parts[0]
	for _, p := range parts[1:] {
		joined += "\n\n---\n\n" + p
	}
	return joined
}
