package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/covenanthq/covenant/internal/cache"
	"github.com/covenanthq/covenant/internal/llm"
	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/pipeline"
	"github.com/covenanthq/covenant/internal/retrieve"
	"github.com/covenanthq/covenant/internal/store"
	"github.com/covenanthq/covenant/internal/worker"
)

var (
	fixturePath string
	threadID    string
	tenantName  string
	senderEmail string
	subject     string
	outJSON     string
	timeout     time.Duration
	noCache     bool
	embedCorpus bool
	genModel    string
	rerankModel string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one tenant question against a community corpus",
	Long: `Ask runs a single question through the full answer pipeline:
- Select context strategy (full corpus vs hybrid retrieval)
- Retrieve and rerank the most relevant document chunks
- Generate a draft answer with verbatim source quotes
- Verify every quote against the actual document text
- Escalate to a human when the answer cannot be grounded

The community corpus is loaded from a YAML fixture file produced by the
ingestion service.

Example:
  covenant ask "Can I have a dog?" --fixture community.yaml
  covenant ask "What are quiet hours?" --fixture community.yaml --json outcome.json
  covenant ask "Is my fence too tall?" --fixture community.yaml --embed --thread thread-42`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&fixturePath, "fixture", "", "community corpus YAML file (required)")
	_ = askCmd.MarkFlagRequired("fixture")

	askCmd.Flags().StringVar(&threadID, "thread", "", "email thread ID for a follow-up question")
	askCmd.Flags().StringVar(&tenantName, "tenant", "", "tenant name for a personalized reply")
	askCmd.Flags().StringVar(&senderEmail, "sender", "", "tenant email address")
	askCmd.Flags().StringVar(&subject, "subject", "", "email subject line")
	askCmd.Flags().StringVar(&outJSON, "json", "", "write the full outcome as JSON to this path")
	askCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall run timeout")
	askCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable embedding and outcome caching")
	askCmd.Flags().BoolVar(&embedCorpus, "embed", false, "compute chunk embeddings before answering (fixture has none)")

	askCmd.Flags().StringVar(&genModel, "model", "", "generation model (default from config)")
	askCmd.Flags().StringVar(&rerankModel, "rerank-model", "", "rerank model (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	p, communityID, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	outcome, err := p.Run(ctx, pipeline.Message{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		ThreadID:    threadID,
		SenderEmail: senderEmail,
		Subject:     subject,
		Body:        question,
		TenantName:  tenantName,
	})
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	printOutcome(outcome)

	if outJSON != "" {
		if err := writeOutcomeJSON(outcome, outJSON); err != nil {
			return fmt.Errorf("write outcome: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote outcome to %s\n", outJSON)
		}
	}

	return nil
}

// buildConfig assembles configuration from defaults, flags, and
// environment variables.
func buildConfig() (model.Config, error) {
	cfg := model.DefaultConfig()

	if genModel != "" {
		cfg.OpenAI.Model = genModel
	}
	if rerankModel != "" {
		cfg.Cohere.Model = rerankModel
	}
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAI.APIKey == "" {
		return cfg, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// Optional; without it retrieval uses fused order instead of the
	// cross-encoder.
	cfg.Cohere.APIKey = os.Getenv("COHERE_API_KEY")

	return cfg, nil
}

// buildPipeline wires the stores, retrieval engine, model clients, and
// caches into a ready pipeline for the fixture's community.
func buildPipeline(ctx context.Context, cfg model.Config, log *zap.Logger) (*pipeline.Pipeline, string, error) {
	mem, err := store.LoadFixture(fixturePath)
	if err != nil {
		return nil, "", err
	}

	communities := mem.Communities()
	if len(communities) == 0 {
		return nil, "", fmt.Errorf("fixture %s: no community defined", fixturePath)
	}
	communityID := communities[0].ID

	limiter := worker.NewLimiter(cfg.OpenAI.RatePerSecond, 5)

	var embCache, outcomeCache cache.Cache
	if cfg.Cache.Enabled {
		embCache = cache.NewLayeredCache(cfg.Cache.TTL, cacheDir(), cfg.Cache.TTL)
		outcomeCache = cache.NewMemoryCache(cfg.Cache.OutcomeTTL, 10*time.Minute)
	}

	embedder := llm.NewEmbeddingClient(cfg.OpenAI, limiter, embCache, cfg.Cache.TTL, log)

	if embedCorpus {
		if err := embedFixtureChunks(ctx, mem, communityID, embedder); err != nil {
			return nil, "", fmt.Errorf("embed corpus: %w", err)
		}
	}

	var reranker retrieve.Reranker
	if r := retrieve.NewCohereReranker(cfg.Cohere); r != nil {
		reranker = r
	}

	engine := retrieve.NewEngine(embedder, reranker, cfg.Retrieval, log)
	generator := llm.NewGenerator(cfg.OpenAI, limiter, log)
	verifier := llm.NewVerifier(cfg.OpenAI, limiter, log)

	return pipeline.New(cfg, mem, mem, engine, generator, verifier, outcomeCache, log), communityID, nil
}

// embedFixtureChunks fills in embeddings for a fixture loaded without
// precomputed vectors, so the vector retrieval leg has something to
// score.
func embedFixtureChunks(ctx context.Context, mem *store.Memory, communityID string, embedder *llm.EmbeddingClient) error {
	chunks, err := mem.Chunks(ctx, communityID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i := range chunks {
		if i < len(vecs) {
			chunks[i].Embedding = vecs[i]
		}
	}

	mem.ReplaceChunks(communityID, chunks)
	return nil
}

// cacheDir returns the on-disk cache location
func cacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "covenant-cache")
	}
	return filepath.Join(home, ".covenant", "cache")
}

// printOutcome renders one outcome for the terminal
func printOutcome(out model.PipelineOutcome) {
	fmt.Printf("Status: %s\n", out.Status)
	if out.EscalationReason != "" {
		fmt.Printf("Escalation: %s\n", out.EscalationReason)
	}
	fmt.Printf("\n%s\n", out.AnswerText)

	if len(out.Citations) > 0 {
		fmt.Printf("\nCitations:\n")
		for i, c := range out.Citations {
			mark := "unverified"
			if c.Verified {
				mark = "verified"
			}
			fmt.Printf("  [%d] %s (%s, %s)\n", i+1, c.SectionReference, c.Confidence, mark)
			fmt.Printf("      %q\n", c.SourceQuote)
		}
	}
}

// writeOutcomeJSON writes the full outcome, including the raw model
// response, for diagnostics.
func writeOutcomeJSON(out model.PipelineOutcome, path string) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
