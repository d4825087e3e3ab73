package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/covenanthq/covenant/internal/model"
)

func seededMemory() *Memory {
	m := NewMemory()
	m.AddCommunity(model.Community{ID: "oakwood", Name: "Oakwood HOA", AutoReplyEnabled: true})
	m.AddDocument(
		model.Document{ID: "ccr", CommunityID: "oakwood", Title: "CC&Rs", FullText: "Pets are allowed.", TotalTokens: 4},
		[]model.Chunk{
			{ID: "ccr-1", DocumentID: "ccr", ChunkIndex: 1, Content: "second"},
			{ID: "ccr-0", DocumentID: "ccr", ChunkIndex: 0, Content: "first"},
		},
	)
	return m
}

func TestMemory_Community(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	c, err := m.Community(ctx, "oakwood")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.AutoReplyEnabled {
		t.Error("community fields not preserved")
	}

	if _, err := m.Community(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ChunksSortedByPosition(t *testing.T) {
	m := seededMemory()

	chunks, err := m.Chunks(context.Background(), "oakwood")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 || chunks[1].ChunkIndex != 1 {
		t.Errorf("chunks not in document order: %v", chunks)
	}
}

func TestMemory_FullTextJoinsDocuments(t *testing.T) {
	m := seededMemory()
	m.AddDocument(model.Document{ID: "bylaws", CommunityID: "oakwood", FullText: "Quiet hours apply.", TotalTokens: 5}, nil)

	text, tokens, err := m.FullText(context.Background(), "oakwood")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens != 9 {
		t.Errorf("expected summed tokens 9, got %d", tokens)
	}
	if !strings.Contains(text, "\n\n---\n\n") {
		t.Errorf("expected document separator, got %q", text)
	}
}

func TestMemory_EnsureReusesThreadConversation(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	first, err := m.Ensure(ctx, "oakwood", "thread-1", "t@example.com", "Pets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.Ensure(ctx, "oakwood", "thread-1", "t@example.com", "Pets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same thread must reuse the conversation: %s vs %s", first.ID, second.ID)
	}

	fresh, err := m.Ensure(ctx, "oakwood", "", "t@example.com", "New question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.ID == first.ID {
		t.Error("empty thread must create a new conversation")
	}
}

func TestMemory_RecentTurnsLimit(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	conv, _ := m.Ensure(ctx, "oakwood", "thread-2", "", "")
	for i := 0; i < 5; i++ {
		if err := m.AppendTurn(ctx, conv.ID, model.ConversationTurn{Role: model.RoleTenant, Text: string(rune('a' + i))}); err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}

	turns, err := m.RecentTurns(ctx, "thread-2", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Text != "d" || turns[1].Text != "e" {
		t.Errorf("expected the most recent turns in order, got %v", turns)
	}

	// Unknown thread is empty history, not an error.
	turns, err = m.RecentTurns(ctx, "nope", 10)
	if err != nil || turns != nil {
		t.Errorf("expected empty history for unknown thread, got %v, %v", turns, err)
	}
}

func TestMemory_AppendToUnknownConversation(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	if err := m.AppendTurn(ctx, "missing", model.ConversationTurn{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := m.AppendOutcome(ctx, "missing", model.PipelineOutcome{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_AppendOutcomeUpdatesStatus(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	conv, _ := m.Ensure(ctx, "oakwood", "thread-3", "", "")
	out := model.PipelineOutcome{MessageID: "m1", Status: model.StatusNeedsHuman}
	if err := m.AppendOutcome(ctx, conv.ID, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := m.Outcomes(conv.ID)
	if len(got) != 1 || got[0].MessageID != "m1" {
		t.Errorf("outcome not recorded: %v", got)
	}
}

func TestMemory_ReplaceChunks(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	chunks, _ := m.Chunks(ctx, "oakwood")
	for i := range chunks {
		chunks[i].Embedding = []float32{1, 2}
	}
	m.ReplaceChunks("oakwood", chunks)

	got, _ := m.Chunks(ctx, "oakwood")
	for _, c := range got {
		if len(c.Embedding) != 2 {
			t.Errorf("chunk %s missing replaced embedding", c.ID)
		}
	}
}
