package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
)

type Config struct {
	K      int     // passages returned
	FetchK int     // candidates considered
	Lambda float64 // 1 is pure relevance, 0 is pure diversity

	// Candidates scoring at or below ScoreThreshold are unrelated to the
	// question and never returned.
	ScoreThreshold float32
}

type Retriever struct {
	config   Config
	index    types.VectorIndex
	embedder types.Embedder
}

func NewWithConfig(config Config, index types.VectorIndex, embedder types.Embedder) (*Retriever, error) {
	if config.K == 0 {
		config.K = 6
	}
	if config.FetchK == 0 {
		config.FetchK = 12
	}
	if config.Lambda == 0 {
		config.Lambda = 0.7
	}
	if config.K < 0 || config.FetchK < config.K {
		return nil, fmt.Errorf("fetch_k (%d) must be at least k (%d)", config.FetchK, config.K)
	}
	if config.Lambda < 0 || config.Lambda > 1 {
		return nil, fmt.Errorf("lambda must be between 0 and 1")
	}
	if index == nil || embedder == nil {
		return nil, fmt.Errorf("retriever needs an index and an embedder")
	}

	return &Retriever{
		config:   config,
		index:    index,
		embedder: embedder,
	}, nil
}

func (r *Retriever) Config() Config {
	return r.config
}

// Retrieve returns up to K passages for query, chosen by maximal marginal
// relevance among the FetchK most similar chunks. An empty result is not
// an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}

	candidates, err := r.index.Candidates(ctx, vector, r.config.FetchK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	relevant := candidates[:0:0]
	for _, c := range candidates {
		if c.Score > r.config.ScoreThreshold {
			relevant = append(relevant, c)
		}
	}

	selected := MMR(relevant, r.config.K, r.config.Lambda)
	logger.Debug("retrieved %d of %d candidates for %q", len(selected), len(candidates), query)
	return selected, nil
}
