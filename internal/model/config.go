package model

import "time"

// Config is the immutable configuration value threaded through the call
// chain. Components never read ambient settings; every threshold and mode
// switch arrives through this struct so each stage is deterministic under
// test.
type Config struct {
	OpenAI      OpenAIConfig      `yaml:"openai" json:"openai"`
	Cohere      CohereConfig      `yaml:"cohere" json:"cohere"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	Citations   CitationConfig    `yaml:"citations" json:"citations"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// OpenAIConfig configures the generation and embedding clients.
type OpenAIConfig struct {
	APIKey         string        `yaml:"api_key" json:"-"`
	Model          string        `yaml:"model" json:"model"`
	EmbeddingModel string        `yaml:"embedding_model" json:"embedding_model"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"` // Per-call; exceeding it is a generation error
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	RatePerSecond  float64       `yaml:"rate_per_second" json:"rate_per_second"`
}

// CohereConfig configures the cross-encoder reranker. An empty APIKey
// disables reranking; retrieval degrades to fused order.
type CohereConfig struct {
	APIKey  string        `yaml:"api_key" json:"-"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RetrievalConfig holds the hybrid search knobs.
type RetrievalConfig struct {
	FullContextMaxTokens int `yaml:"full_context_max_tokens" json:"full_context_max_tokens"` // At or below: skip retrieval entirely
	TopN                 int `yaml:"top_n" json:"top_n"`                                     // Per-leg candidates before fusion
	RerankCandidates     int `yaml:"rerank_candidates" json:"rerank_candidates"`             // Fused candidates sent to the reranker
	RerankKeep           int `yaml:"rerank_keep" json:"rerank_keep"`                         // Candidates kept after reranking
	FusionK              int `yaml:"fusion_k" json:"fusion_k"`                               // Reciprocal Rank Fusion constant
	MaxHistoryTurns      int `yaml:"max_history_turns" json:"max_history_turns"`
}

// CitationConfig holds the deterministic verifier thresholds.
type CitationConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"` // Verified iff match >= this
	MinQuoteLength      int     `yaml:"min_quote_length" json:"min_quote_length"`         // Shorter quotes are unverifiable
}

// ConcurrencyConfig bounds how many pipeline runs execute at once.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// CacheConfig controls embedding and idempotency caching.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	OutcomeTTL time.Duration `yaml:"outcome_ttl" json:"outcome_ttl"` // How long redelivered messages dedupe
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
			Timeout:        60 * time.Second,
			MaxRetries:     3,
			RatePerSecond:  2,
		},
		Cohere: CohereConfig{
			Model:   "rerank-english-v3.0",
			Timeout: 15 * time.Second,
		},
		Retrieval: RetrievalConfig{
			FullContextMaxTokens: 80000,
			TopN:                 15,
			RerankCandidates:     15,
			RerankKeep:           8,
			FusionK:              60,
			MaxHistoryTurns:      20,
		},
		Citations: CitationConfig{
			SimilarityThreshold: 0.85,
			MinQuoteLength:      10,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        1 * time.Hour,
			OutcomeTTL: 24 * time.Hour,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}
