package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
	"github.com/xhad/seerah/internal/vecmath"
)

type IndexConfig struct {
	ModelID  string
	Source   string
	Embedder embeddings.Embedder // used by AddDocuments and SimilaritySearch
}

// Index is an in-memory vector index searched by brute force cosine
// similarity. It is safe for concurrent use.
type Index struct {
	config IndexConfig

	mu     sync.RWMutex
	chunks []models.Chunk
	ids    map[string]bool
	dim    int
}

var (
	_ types.VectorIndex         = (*Index)(nil)
	_ vectorstores.VectorStore = (*Index)(nil)
)

func NewIndex(config IndexConfig) *Index {
	return &Index{
		config: config,
		ids:    make(map[string]bool),
	}
}

func (ix *Index) ModelID() string {
	return ix.config.ModelID
}

func (ix *Index) Source() string {
	return ix.config.Source
}

// Add appends embedded chunks. Every chunk must carry an embedding of the
// index dimension and an ID not already present.
func (ix *Index) Add(_ context.Context, chunks []models.Chunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		if dim == 0 {
			dim = len(c.Embedding)
		}
		if len(c.Embedding) != dim {
			return fmt.Errorf("chunk %s has dimension %d, index has %d", c.ID, len(c.Embedding), dim)
		}
		if c.ID == "" || ix.ids[c.ID] || seen[c.ID] {
			return fmt.Errorf("duplicate or empty chunk id %q", c.ID)
		}
		seen[c.ID] = true
	}

	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		ix.chunks = append(ix.chunks, c)
		ix.ids[c.ID] = true
	}
	ix.dim = dim
	return nil
}

// Candidates returns up to n chunks ordered by descending cosine
// similarity to query. Equal scores keep insertion order.
func (ix *Index) Candidates(ctx context.Context, query []float32, n int) ([]models.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if n <= 0 || len(ix.chunks) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", types.ErrIncompatibleIndex, len(query), ix.dim)
	}

	scored := make([]models.ScoredChunk, len(ix.chunks))
	for i, c := range ix.chunks {
		scored[i] = models.ScoredChunk{Chunk: c, Score: vecmath.Cosine(query, c.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if n < len(scored) {
		scored = scored[:n]
	}
	return scored, nil
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Chunks returns a snapshot of the indexed chunks in insertion order.
func (ix *Index) Chunks() []models.Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]models.Chunk(nil), ix.chunks...)
}

func (ix *Index) Close() {}

func (ix *Index) embedder(options []vectorstores.Option) (vectorstores.Options, error) {
	opts := vectorstores.Options{Embedder: ix.config.Embedder}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Embedder == nil {
		return opts, fmt.Errorf("no embedder configured")
	}
	return opts, nil
}

// AddDocuments embeds and indexes langchaingo documents. A "page" metadata
// entry becomes the chunk page.
func (ix *Index) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts, err := ix.embedder(options)
	if err != nil {
		return nil, err
	}

	if opts.Deduplicater != nil {
		kept := docs[:0:0]
		for _, doc := range docs {
			if !opts.Deduplicater(ctx, doc) {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := opts.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("got %d embeddings for %d documents", len(vectors), len(docs))
	}

	seq := ix.Len()
	ids := make([]string, len(docs))
	chunks := make([]models.Chunk, len(docs))
	for i, doc := range docs {
		page, _ := doc.Metadata["page"].(int)
		ids[i] = uuid.NewString()
		chunks[i] = models.Chunk{
			ID:        ids[i],
			Text:      doc.PageContent,
			Page:      page,
			Seq:       seq + i,
			Embedding: vectors[i],
		}
	}

	if err := ix.Add(ctx, chunks); err != nil {
		return nil, err
	}
	return ids, nil
}

// SimilaritySearch returns the numDocuments most similar documents whose
// score is above the score threshold option.
func (ix *Index) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts, err := ix.embedder(options)
	if err != nil {
		return nil, err
	}

	vector, err := opts.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := ix.Candidates(ctx, vector, numDocuments)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(candidates))
	for _, c := range candidates {
		if opts.ScoreThreshold > 0 && c.Score < opts.ScoreThreshold {
			continue
		}
		docs = append(docs, ToDocument(c))
	}
	return docs, nil
}

// ToDocument converts a scored chunk to a langchaingo document.
func ToDocument(c models.ScoredChunk) schema.Document {
	return schema.Document{
		PageContent: c.Text,
		Metadata: map[string]any{
			"id":   c.ID,
			"page": c.Page,
			"seq":  c.Seq,
		},
		Score: c.Score,
	}
}
