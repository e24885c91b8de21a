package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/seerah/internal/types"
	"golang.org/x/time/rate"
)

type EmbedderConfig struct {
	Provider   string // "openai" or "ollama"
	Model      string
	BaseURL    string
	APIKey     string
	BatchSize  int
	RateLimit  float64 // batches per second
	Timeout    time.Duration
	OnProgress func(done, total int)

	// Client replaces the provider client when set.
	Client embeddings.EmbedderClient
}

// Embedder turns text into vectors through a remote embedding model.
type Embedder struct {
	config   EmbedderConfig
	embedder *embeddings.EmbedderImpl
	limiter  *rate.Limiter
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.Model == "" {
		if config.Provider == "ollama" {
			config.Model = "nomic-embed-text:latest"
		} else {
			config.Model = "text-embedding-3-small"
		}
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	client := config.Client
	if client == nil {
		var err error
		client, err = newEmbeddingClient(config)
		if err != nil {
			return nil, err
		}
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config:   config,
		embedder: emb,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func newEmbeddingClient(config EmbedderConfig) (embeddings.EmbedderClient, error) {
	httpClient := &http.Client{Timeout: config.Timeout}

	switch config.Provider {
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("%w: OpenAI embeddings need an API key", types.ErrMissingCredential)
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
			openai.WithHTTPClient(httpClient),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embeddings: %w", err)
		}
		return client, nil
	case "ollama":
		opts := []ollama.Option{
			ollama.WithModel(config.Model),
			ollama.WithHTTPClient(httpClient),
		}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		client, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama embeddings: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Provider)
	}
}

// ModelID identifies the embedding model. It is recorded with a persisted
// index so an index built by another model is never reused.
func (e *Embedder) ModelID() string {
	return e.config.Provider + ":" + e.config.Model
}

// EmbedDocuments embeds texts in throttled batches. The result has one
// vector per input text, in input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	// the embeddings package strips newlines in place
	texts = append([]string(nil), texts...)

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range embeddings.BatchTexts(texts, e.config.BatchSize) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		out, err := e.embedder.EmbedDocuments(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w: %w", types.ErrServiceUnavailable, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", types.ErrServiceUnavailable, len(out), len(batch))
		}
		vectors = append(vectors, out...)

		if e.config.OnProgress != nil {
			e.config.OnProgress(len(vectors), len(texts))
		}
	}

	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w: %w", types.ErrServiceUnavailable, err)
	}
	return vector, nil
}
