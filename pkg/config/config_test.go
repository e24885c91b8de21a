package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/seerah/internal/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OLLAMA_BASE_URL", "DATABASE_URL", "SEERAH_SOURCE", "SEERAH_INDEX_DIR"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
source:
  path: "books/muhammad.pdf"
  timeout: 10s

llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "llama3"
  temperature: 0.2
  timeout: 45s

embedding:
  batch_size: 32

index:
  backend: "pgvector"

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768

processor:
  chunk_size: 500
  chunk_overlap: 100

retriever:
  k: 4
  fetch_k: 10
  lambda: 0.5

server:
  addr: ":9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "books/muhammad.pdf", config.Source.Path)
	assert.Equal(t, 10*time.Second, config.Source.Timeout)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 0.2, config.LLM.Temperature)
	assert.Equal(t, 45*time.Second, config.LLM.Timeout)
	assert.Equal(t, "ollama", config.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text:latest", config.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Equal(t, 32, config.Embedding.BatchSize)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 4, config.Retriever.K)
	assert.Equal(t, 0.5, config.Retriever.Lambda)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	config := Default()

	assert.Equal(t, "docs/biography.pdf", config.Source.Path)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, 0.0, config.LLM.Temperature)
	assert.Equal(t, 60*time.Second, config.LLM.Timeout)
	assert.Equal(t, "text-embedding-3-small", config.Embedding.Model)
	assert.Equal(t, "local", config.Index.Backend)
	assert.Equal(t, "data/index", config.Index.Dir)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Equal(t, 6, config.Retriever.K)
	assert.Equal(t, 12, config.Retriever.FetchK)
	assert.Equal(t, 0.7, config.Retriever.Lambda)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Empty(t, config.Validate())
}

func TestMergeWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SEERAH_SOURCE", "/tmp/book.txt")
	t.Setenv("SEERAH_INDEX_DIR", "/tmp/index")
	t.Setenv("DATABASE_URL", "postgres://db/seerah")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", config.LLM.APIKey)
	assert.Equal(t, "/tmp/book.txt", config.Source.Path)
	assert.Equal(t, "/tmp/index", config.Index.Dir)
	assert.Equal(t, "postgres://db/seerah", config.Database.URL)
	assert.NoError(t, config.RequireCredentials())
}

func TestRequireCredentials(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		wantErr  bool
	}{
		{"openai without key", "openai", "", true},
		{"openai with key", "openai", "sk-1", false},
		{"ollama without key", "ollama", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			config.LLM.Provider = tt.provider
			config.LLM.APIKey = tt.key
			applyDefaults(config)

			err := config.RequireCredentials()
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrMissingCredential)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(c *Config)
		expectedErrs []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "overlap not smaller than chunk size",
			mutate: func(c *Config) {
				c.Processor.ChunkOverlap = c.Processor.ChunkSize
			},
			expectedErrs: []string{"processor.chunk_overlap"},
		},
		{
			name: "bad retriever settings",
			mutate: func(c *Config) {
				c.Retriever.FetchK = 2
				c.Retriever.Lambda = 1.5
			},
			expectedErrs: []string{"retriever.fetch_k", "retriever.lambda"},
		},
		{
			name: "pgvector without database",
			mutate: func(c *Config) {
				c.Index.Backend = "pgvector"
			},
			expectedErrs: []string{"database.url"},
		},
		{
			name: "unknown providers",
			mutate: func(c *Config) {
				c.LLM.Provider = "bard"
				c.Embedding.Provider = "bard"
			},
			expectedErrs: []string{"llm.provider", "embedding.provider"},
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Index.Backend = "faiss"
			},
			expectedErrs: []string{"index.backend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			errs := config.Validate()
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.expectedErrs, fields)
		})
	}
}
