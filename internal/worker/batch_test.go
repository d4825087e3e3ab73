package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/pipeline"
)

// fakeAsker records messages and answers from a script.
type fakeAsker struct {
	mu       sync.Mutex
	messages []pipeline.Message
	status   model.Status
	err      error
}

func (f *fakeAsker) Run(_ context.Context, msg pipeline.Message) (model.PipelineOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	if f.err != nil {
		return model.PipelineOutcome{}, f.err
	}
	return model.PipelineOutcome{
		MessageID:  msg.ID,
		Status:     f.status,
		AnswerText: "answer to: " + msg.Body,
	}, nil
}

func TestProcessQuestions(t *testing.T) {
	asker := &fakeAsker{status: model.StatusDraftReady}
	b := NewBatchProcessor(asker, "oakwood", 3)

	questions := []string{"Can I have a dog?", "What are quiet hours?", "Can I paint my door?"}
	results := b.ProcessQuestions(context.Background(), questions)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("unexpected error for %q: %v", r.Question, r.Error)
		}
		if r.Outcome.Status != model.StatusDraftReady {
			t.Errorf("unexpected status %v", r.Outcome.Status)
		}
	}

	// Every question becomes an independent message with its own ID and
	// the batch community.
	asker.mu.Lock()
	defer asker.mu.Unlock()
	seen := make(map[string]bool)
	for _, msg := range asker.messages {
		if msg.ID == "" || seen[msg.ID] {
			t.Errorf("message IDs must be unique and non-empty, got %q", msg.ID)
		}
		seen[msg.ID] = true
		if msg.CommunityID != "oakwood" {
			t.Errorf("unexpected community %q", msg.CommunityID)
		}
		if msg.ThreadID != "" {
			t.Errorf("batch questions must start fresh threads, got %q", msg.ThreadID)
		}
	}
}

func TestProcessQuestions_LargeBatch(t *testing.T) {
	// Far more questions than the pool buffers hold. Submission must not
	// block on a full result buffer while nothing drains it.
	asker := &fakeAsker{status: model.StatusDraftReady}
	b := NewBatchProcessor(asker, "oakwood", 4)

	questions := make([]string, 64)
	for i := range questions {
		questions[i] = fmt.Sprintf("question %d", i)
	}

	done := make(chan []*AskResult, 1)
	go func() {
		done <- b.ProcessQuestions(context.Background(), questions)
	}()

	select {
	case results := <-done:
		if len(results) != len(questions) {
			t.Fatalf("expected %d results, got %d", len(questions), len(results))
		}
		seen := make(map[string]bool)
		for _, r := range results {
			if r.Error != nil {
				t.Errorf("unexpected error for %q: %v", r.Question, r.Error)
			}
			seen[r.Question] = true
		}
		if len(seen) != len(questions) {
			t.Errorf("expected %d distinct questions answered, got %d", len(questions), len(seen))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("ProcessQuestions blocked on a large batch")
	}
}

func TestProcessQuestions_Empty(t *testing.T) {
	b := NewBatchProcessor(&fakeAsker{}, "oakwood", 2)
	if results := b.ProcessQuestions(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestProcessQuestions_ErrorsSurfacePerQuestion(t *testing.T) {
	asker := &fakeAsker{err: errors.New("store down")}
	b := NewBatchProcessor(asker, "oakwood", 2)

	results := b.ProcessQuestions(context.Background(), []string{"q1", "q2"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.GetError() == nil {
			t.Errorf("expected error for %q", r.Question)
		}
	}
}

func TestReadQuestionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.txt")
	content := `# pet questions
Can I have a dog?

Can I have a dog?
What are quiet hours?
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	questions, err := ReadQuestionsFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Can I have a dog?", "What are quiet hours?"}
	if len(questions) != len(want) {
		t.Fatalf("expected %d questions, got %d: %v", len(want), len(questions), questions)
	}
	for i := range want {
		if questions[i] != want[i] {
			t.Errorf("question %d: expected %q, got %q", i, want[i], questions[i])
		}
	}
}

func TestReadQuestionsFromFile_Missing(t *testing.T) {
	if _, err := ReadQuestionsFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
