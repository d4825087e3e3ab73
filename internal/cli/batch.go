package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Answer multiple questions from a file in parallel",
	Long: `Batch answers many questions against one community corpus:
- Read questions from input file (one per line, # for comments)
- Run questions in parallel with a configurable worker count
- Each question becomes an independent conversation
- Write one outcome JSON per question

Example:
  covenant batch questions.txt --fixture community.yaml
  covenant batch questions.txt --fixture community.yaml --concurrency 8
  covenant batch questions.txt --fixture community.yaml --output-dir ./answers`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&fixturePath, "fixture", "", "community corpus YAML file (required)")
	_ = batchCmd.MarkFlagRequired("fixture")

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./covenant-answers", "output directory for outcomes")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 15*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable embedding and outcome caching")
	batchCmd.Flags().BoolVar(&embedCorpus, "embed", false, "compute chunk embeddings before answering (fixture has none)")

	batchCmd.Flags().StringVar(&genModel, "model", "", "generation model (default from config)")
	batchCmd.Flags().StringVar(&rerankModel, "rerank-model", "", "rerank model (default from config)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = concurrency

	log := newLogger()
	defer func() { _ = log.Sync() }()

	p, communityID, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(p, communityID, cfg.Concurrency.Workers)

	fmt.Fprintf(os.Stderr, "Reading questions from %s\n", file)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Answered %d questions with %d workers\n\n", len(results), cfg.Concurrency.Workers)

	drafts := 0
	escalated := 0
	failures := 0

	for i, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %q: %v\n", result.Question, result.Error)
			continue
		}

		switch result.Outcome.Status {
		case model.StatusDraftReady:
			drafts++
			fmt.Fprintf(os.Stderr, "✓ %q: draft ready (%d citations)\n",
				result.Question, len(result.Outcome.Citations))
		default:
			escalated++
			fmt.Fprintf(os.Stderr, "→ %q: needs human (%s)\n",
				result.Question, result.Outcome.EscalationReason)
		}

		path := filepath.Join(outputDir, fmt.Sprintf("answer-%03d.json", i+1))
		if err := writeBatchOutcome(result, path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %q: failed to write outcome: %v\n", result.Question, err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "Total:       %d questions\n", len(results))
	fmt.Fprintf(os.Stderr, "Drafts:      %d\n", drafts)
	fmt.Fprintf(os.Stderr, "Escalated:   %d\n", escalated)
	fmt.Fprintf(os.Stderr, "Failures:    %d\n", failures)
	fmt.Fprintf(os.Stderr, "Output:      %s\n", outputDir)

	return nil
}

// batchOutcome pairs a question with its outcome in the written JSON,
// since batch file names carry no question text.
type batchOutcome struct {
	Question string                `json:"question"`
	Outcome  model.PipelineOutcome `json:"outcome"`
}

func writeBatchOutcome(result *worker.AskResult, path string) error {
	data, err := json.MarshalIndent(batchOutcome{
		Question: result.Question,
		Outcome:  result.Outcome,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
