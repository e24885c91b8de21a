package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
	"github.com/xhad/seerah/pkg/llm"
	"github.com/xhad/seerah/pkg/processor"
	"github.com/xhad/seerah/pkg/retriever"
)

// Info describes the index behind an assistant.
type Info struct {
	Backend        string `json:"backend"`
	Chunks         int    `json:"chunks"`
	Dimension      int    `json:"dimension"`
	EmbeddingModel string `json:"embedding_model"`
	Source         string `json:"source"`
	Location       string `json:"location"`
}

// Assistant answers questions about the indexed document. Answer may be
// called concurrently; AddDocuments excludes all other use while it runs.
type Assistant struct {
	mu        sync.RWMutex
	index     types.VectorIndex
	embedder  types.Embedder
	retriever *retriever.Retriever
	engine    *llm.ChatEngine
	processor processor.Processor
	persist   func(ctx context.Context) error
	info      Info
}

// Answer runs retrieval, synthesis and citation for one question. Failures
// are reported in the result, never as a panic or error return.
func (a *Assistant) Answer(ctx context.Context, question string) models.AnswerResult {
	question = strings.TrimSpace(question)
	if question == "" {
		return failed(question, types.ErrEmptyQuestion)
	}

	chunks, err := a.Retrieve(ctx, question)
	if err != nil {
		return failed(question, err)
	}

	return a.engine.Answer(ctx, question, chunks)
}

// AnswerStream is Answer with the answer text streamed as it is generated.
func (a *Assistant) AnswerStream(ctx context.Context, question string) <-chan llm.StreamEvent {
	question = strings.TrimSpace(question)

	var err error
	var chunks []models.ScoredChunk
	if question == "" {
		err = types.ErrEmptyQuestion
	} else {
		chunks, err = a.Retrieve(ctx, question)
	}
	if err != nil {
		events := make(chan llm.StreamEvent, 1)
		result := failed(question, err)
		events <- llm.StreamEvent{Result: &result}
		close(events)
		return events
	}

	return a.engine.ChatStream(ctx, question, chunks)
}

// Retrieve returns the passages an answer to question would be grounded on.
func (a *Assistant) Retrieve(ctx context.Context, question string) ([]models.ScoredChunk, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	chunks, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve passages: %w", err)
	}
	return chunks, nil
}

// Similar returns the k passages closest to query by plain similarity,
// without the diversity step of Retrieve.
func (a *Assistant) Similar(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	vec, err := a.embedder.EmbedQuery(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return a.index.Candidates(ctx, vec, k)
}

// AddDocuments chunks, embeds and appends doc to the index, then persists
// the index. It returns the number of chunks added.
func (a *Assistant) AddDocuments(ctx context.Context, doc models.Document) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chunks, err := embedDocument(ctx, a.processor, a.embedder, doc, a.index.Len())
	if err != nil {
		return 0, err
	}

	if err := a.index.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to add chunks: %w", err)
	}
	if a.persist != nil {
		if err := a.persist(ctx); err != nil {
			return 0, fmt.Errorf("failed to persist index: %w", err)
		}
	}

	a.info.Chunks = a.index.Len()
	a.info.Dimension = a.index.Dimension()
	logger.Info("added %d chunks from %s", len(chunks), doc.Source)
	return len(chunks), nil
}

func (a *Assistant) Info() Info {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.info
}

func (a *Assistant) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.index.Close()
}

// embedDocument chunks doc starting at sequence number firstSeq and embeds
// every chunk.
func embedDocument(ctx context.Context, proc processor.Processor, emb types.Embedder, doc models.Document, firstSeq int) ([]models.Chunk, error) {
	chunks, err := proc.Process(doc, firstSeq)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrEmptyDocument, doc.Source)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := emb.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", types.ErrServiceUnavailable, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, nil
}

func failed(question string, err error) models.AnswerResult {
	logger.Warn("question failed: %v", err)
	return models.AnswerResult{
		Question: question,
		Answer:   llm.ErrorAnswer(err),
		Pages:    []string{},
		Err:      err,
	}
}
