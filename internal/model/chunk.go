package model

// Chunk is a section-bounded unit of governing-document text with
// hierarchical location metadata. Chunks are produced by the ingestion
// collaborator and are read-only inside the pipeline.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	ChunkIndex   int       `json:"chunk_index"`             // Ordinal position within the document
	Content      string    `json:"content"`                 // The chunk text itself
	ArticleNum   string    `json:"article_number,omitempty"` // e.g. "Article VIII"
	ArticleTitle string    `json:"article_title,omitempty"`
	SectionNum   string    `json:"section_number,omitempty"` // e.g. "Section 7.6"
	PageNumber   int       `json:"page_number,omitempty"`
	TokenCount   int       `json:"token_count"`
	Embedding    []float32 `json:"embedding,omitempty"` // Same embedding space as queries
}

// Locator returns the most specific hierarchical reference for the chunk.
// Section beats article; an empty string means the chunk is unlabeled.
func (c Chunk) Locator() string {
	if c.SectionNum != "" {
		return c.SectionNum
	}
	return c.ArticleNum
}

// Document is an ordered sequence of chunks plus a full-text blob.
// Ownership (upload, parsing, chunking) lives with the ingestion
// collaborator; the core only reads.
type Document struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	Title       string `json:"title"`
	FullText    string `json:"full_text"`
	TotalTokens int    `json:"total_tokens"`
}

// Community identifies a governed community and its reply policy.
type Community struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	AutoReplyEnabled bool   `json:"auto_reply_enabled" yaml:"auto_reply_enabled"` // draft_ready outcomes may be auto-sent
}

// TurnRole distinguishes who produced a conversation turn.
type TurnRole string

const (
	RoleTenant    TurnRole = "tenant"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one prior message in a thread, oldest-first when
// listed. Turns are append-only and never altered by the pipeline.
type ConversationTurn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// RetrievalCandidate pairs a chunk with its fused and rerank scores.
// Candidates are transient; they exist only within one retrieval call.
type RetrievalCandidate struct {
	Chunk       Chunk   `json:"chunk"`
	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
}
