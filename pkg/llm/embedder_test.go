package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/xhad/seerah/internal/types"
	"github.com/xhad/seerah/pkg/llm"
)

func lengthClient(calls *[][]string) embeddings.EmbedderClient {
	return embeddings.EmbedderClientFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		*calls = append(*calls, append([]string(nil), texts...))
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text)), 1}
		}
		return out, nil
	})
}

func TestNewEmbedderWithConfig(t *testing.T) {
	var calls [][]string
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Client: lengthClient(&calls)})
	require.NoError(t, err)
	assert.Equal(t, "openai:text-embedding-3-small", emb.ModelID())

	emb, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "ollama", Client: lengthClient(&calls)})
	require.NoError(t, err)
	assert.Equal(t, "ollama:nomic-embed-text:latest", emb.ModelID())

	_, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "openai"})
	assert.ErrorIs(t, err, types.ErrMissingCredential)
}

func TestEmbedDocuments_Batches(t *testing.T) {
	var calls [][]string
	var progress [][2]int
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		BatchSize: 2,
		RateLimit: 1000,
		Client:    lengthClient(&calls),
		OnProgress: func(done, total int) {
			progress = append(progress, [2]int{done, total})
		},
	})
	require.NoError(t, err)

	texts := []string{"a", "bb\nbb", "ccc", "dddd", "eeeee"}
	vectors, err := emb.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
	assert.Len(t, calls, 3)
	assert.Equal(t, "bb bb", calls[0][1])
	assert.Equal(t, "bb\nbb", texts[1], "input must not be modified")
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
}

func TestEmbedDocuments_Errors(t *testing.T) {
	failing := embeddings.EmbedderClientFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	})
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Client: failing})
	require.NoError(t, err)

	_, err = emb.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = emb.EmbedQuery(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)

	short := embeddings.EmbedderClientFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	})
	emb, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Client: short})
	require.NoError(t, err)

	_, err = emb.EmbedDocuments(context.Background(), []string{"x", "y"})
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
}

func TestEmbedder_OpenAIServer(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(payload.Input))
		for i := range payload.Input {
			data[i] = item{Object: "embedding", Embedding: []float32{float32(i), 0.5}, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": payload.Model})
	}))
	defer server.Close()

	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: "openai",
		APIKey:   "sk-test",
		BaseURL:  server.URL + "/v1",
	})
	require.NoError(t, err)

	vectors, err := emb.EmbedDocuments(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0.5}, {1, 0.5}}, vectors)
	assert.Equal(t, "Bearer sk-test", auth)

	query, err := emb.EmbedQuery(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5}, query)
}
