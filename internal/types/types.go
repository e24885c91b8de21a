package types

import (
	"context"
	"errors"

	"github.com/xhad/seerah/internal/models"
)

var (
	// ErrMissingCredential is returned at startup when the model provider
	// needs an API key and none is configured.
	ErrMissingCredential = errors.New("missing API credential")
	// ErrIndexUnavailable means no persisted index exists at the configured location.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrIncompatibleIndex means the persisted index was built with a
	// different embedding model or dimension.
	ErrIncompatibleIndex = errors.New("vector index incompatible with embedder")
	// ErrCorruptIndex means the persisted index could not be read back intact.
	ErrCorruptIndex = errors.New("vector index corrupt")
	// ErrServiceUnavailable wraps failures of the remote model service.
	ErrServiceUnavailable = errors.New("model service unavailable")
	// ErrEmptyDocument means the source produced no usable text.
	ErrEmptyDocument = errors.New("document has no text")
	ErrEmptyQuestion = errors.New("question is empty")
)

// Core interfaces
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelID() string
}

type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	Candidates(ctx context.Context, query []float32, n int) ([]models.ScoredChunk, error)
	Len() int
	Dimension() int
	Close()
}

type Loader interface {
	Load(ctx context.Context, source string) (models.Document, error)
}

type Synthesizer interface {
	Answer(ctx context.Context, question string, chunks []models.ScoredChunk) models.AnswerResult
}
