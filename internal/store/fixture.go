package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/covenanthq/covenant/internal/model"
	"github.com/covenanthq/covenant/internal/util"
)

// Fixture is the YAML shape consumed by LoadFixture. It carries one
// community and its pre-chunked documents, matching what the ingestion
// service would have written.
type Fixture struct {
	Community model.Community   `yaml:"community"`
	Documents []FixtureDocument `yaml:"documents"`
}

// FixtureDocument is one document plus its chunks.
type FixtureDocument struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	FullText    string         `yaml:"full_text"`
	TotalTokens int            `yaml:"total_tokens"`
	Chunks      []FixtureChunk `yaml:"chunks"`
}

// FixtureChunk is one chunk; embeddings are optional and usually absent
// in fixtures, in which case only the lexical retrieval leg scores it.
type FixtureChunk struct {
	Content       string    `yaml:"content"`
	ArticleNumber string    `yaml:"article_number"`
	ArticleTitle  string    `yaml:"article_title"`
	SectionNumber string    `yaml:"section_number"`
	PageNumber    int       `yaml:"page_number"`
	TokenCount    int       `yaml:"token_count"`
	Embedding     []float32 `yaml:"embedding"`
}

// LoadFixture reads a community corpus from a YAML file into a Memory
// store. Missing token counts are computed with the same encoding the
// strategy selector uses.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if fx.Community.ID == "" {
		return nil, fmt.Errorf("fixture %s: community.id is required", path)
	}

	m := NewMemory()
	m.AddCommunity(fx.Community)

	for i, fd := range fx.Documents {
		doc := model.Document{
			ID:          fd.ID,
			CommunityID: fx.Community.ID,
			Title:       fd.Title,
			FullText:    fd.FullText,
			TotalTokens: fd.TotalTokens,
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("%s-doc-%d", fx.Community.ID, i)
		}
		if doc.TotalTokens == 0 && doc.FullText != "" {
			doc.TotalTokens = util.CountTokens(doc.FullText)
		}

		chunks := make([]model.Chunk, 0, len(fd.Chunks))
		for j, fc := range fd.Chunks {
			tokens := fc.TokenCount
			if tokens == 0 {
				tokens = util.CountTokens(fc.Content)
			}
			chunks = append(chunks, model.Chunk{
				ID:           fmt.Sprintf("%s-chunk-%d", doc.ID, j),
				DocumentID:   doc.ID,
				ChunkIndex:   j,
				Content:      fc.Content,
				ArticleNum:   fc.ArticleNumber,
				ArticleTitle: fc.ArticleTitle,
				SectionNum:   fc.SectionNumber,
				PageNumber:   fc.PageNumber,
				TokenCount:   tokens,
				Embedding:    fc.Embedding,
			})
		}
		m.AddDocument(doc, chunks)
	}

	return m, nil
}
