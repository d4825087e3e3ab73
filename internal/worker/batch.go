package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/pipeline"
)

// Asker defines the interface for answering one inbound message
type Asker interface {
	Run(ctx context.Context, msg pipeline.Message) (model.PipelineOutcome, error)
}

// AskJob represents one question run through the pipeline
type AskJob struct {
	Message pipeline.Message
	Asker   Asker
}

// Execute executes the ask job
func (j *AskJob) Execute(ctx context.Context) Result {
	outcome, err := j.Asker.Run(ctx, j.Message)
	return &AskResult{
		Question: j.Message.Body,
		Outcome:  outcome,
		Error:    err,
	}
}

// AskResult represents the result of an ask job
type AskResult struct {
	Question string
	Outcome  model.PipelineOutcome
	Error    error
}

// GetError returns the error from the ask result
func (r *AskResult) GetError() error {
	return r.Error
}

// BatchProcessor answers multiple questions concurrently. The pool size
// is the process-wide bound on simultaneous pipeline runs.
type BatchProcessor struct {
	asker       Asker
	communityID string
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(asker Asker, communityID string, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		asker:       asker,
		communityID: communityID,
		concurrency: concurrency,
	}
}

// ProcessQuestions answers multiple questions concurrently. Each
// question becomes an independent message (fresh thread, generated ID).
func (b *BatchProcessor) ProcessQuestions(ctx context.Context, questions []string) []*AskResult {
	if len(questions) == 0 {
		return []*AskResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	// Submission blocks once the pool's buffers fill, so jobs go in from
	// a separate goroutine while this one drains results as they arrive.
	go func() {
		for _, q := range questions {
			pool.Submit(&AskJob{
				Message: pipeline.Message{
					ID:          uuid.NewString(),
					CommunityID: b.communityID,
					Body:        q,
				},
				Asker: b.asker,
			})
		}
		pool.Finish()
	}()

	askResults := make([]*AskResult, 0, len(questions))
	for result := range pool.Results() {
		askResults = append(askResults, result.(*AskResult))
	}

	return askResults
}

// ProcessFile reads questions from a file and answers them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AskResult, error) {
	questions, err := ReadQuestionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	return b.ProcessQuestions(ctx, questions), nil
}

// ReadQuestionsFromFile reads questions from a file (one per line)
func ReadQuestionsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var questions []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate questions
		if !seen[line] {
			seen[line] = true
			questions = append(questions, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return questions, nil
}
