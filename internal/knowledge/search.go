// Package knowledge ranks stored documents against a query by embedding
// cosine similarity, feeding relevant snippets into reply generation.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/factoryia/fincasya-new/internal/llm"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Embedder produces embedding vectors for text. *llm.Client implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Snippet struct {
	Title   string
	Content string
	Score   float64
}

type Searcher struct {
	db       *gorm.DB
	embedder Embedder
}

func NewSearcher(db *gorm.DB, embedder Embedder) *Searcher {
	return &Searcher{db: db, embedder: embedder}
}

// AddDocument stores a document together with its embedding.
func (s *Searcher) AddDocument(ctx context.Context, title, content string) error {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	encoded, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	doc := models.Document{Title: title, Content: content, Embedding: string(encoded)}
	return s.db.Create(&doc).Error
}

// Search returns the limit most similar documents to the query. When no
// embedder credentials are configured the result is empty, not an error —
// replies simply go out without knowledge context.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			log.Debug().Msg("knowledge search skipped, no embeddings credentials")
			return nil, nil
		}
		return nil, err
	}

	var docs []models.Document
	if err := s.db.Find(&docs).Error; err != nil {
		return nil, err
	}

	snippets := make([]Snippet, 0, len(docs))
	for _, doc := range docs {
		var vec []float32
		if err := json.Unmarshal([]byte(doc.Embedding), &vec); err != nil {
			continue
		}
		score := cosine(queryVec, vec)
		if math.IsNaN(score) {
			continue
		}
		snippets = append(snippets, Snippet{Title: doc.Title, Content: doc.Content, Score: score})
	}

	sort.Slice(snippets, func(i, j int) bool { return snippets[i].Score > snippets[j].Score })
	if limit > 0 && len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
