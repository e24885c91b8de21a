package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const (
	FormatVersion = 1
	ManifestFile  = "manifest.yaml"
	DataFile      = "index.db"
)

// Manifest describes a persisted index. It is written after the data file
// so a directory with a readable manifest holds a complete index.
type Manifest struct {
	Version        int       `yaml:"version"`
	EmbeddingModel string    `yaml:"embedding_model"`
	Dimension      int       `yaml:"dimension"`
	Chunks         int       `yaml:"chunks"`
	Source         string    `yaml:"source"`
	CreatedAt      time.Time `yaml:"created_at"`
}

// Expect is what the caller requires of a persisted index. Zero fields
// are not checked.
type Expect struct {
	ModelID   string
	Dimension int
}

// Save writes the index to dir, replacing any previous index there.
func (ix *Index) Save(ctx context.Context, dir string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := filepath.Join(dir, DataFile+".tmp")
	_ = os.Remove(tmp)
	if err := writeChunks(ctx, tmp, ix.chunks); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, DataFile)); err != nil {
		return fmt.Errorf("failed to replace index data: %w", err)
	}

	manifest := Manifest{
		Version:        FormatVersion,
		EmbeddingModel: ix.config.ModelID,
		Dimension:      ix.dim,
		Chunks:         len(ix.chunks),
		Source:         ix.config.Source,
		CreatedAt:      time.Now().UTC(),
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile+".tmp"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(filepath.Join(dir, ManifestFile+".tmp"), filepath.Join(dir, ManifestFile)); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	logger.Info("saved %d chunks to %s", len(ix.chunks), dir)
	return nil
}

func writeChunks(ctx context.Context, path string, chunks []models.Chunk) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open index data: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE chunks (
			seq INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			page INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (seq, id, page, content, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.Seq, c.ID, c.Page, c.Text, pgvector.NewVector(c.Embedding).String()); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReadManifest reads the manifest of the index in dir.
func ReadManifest(dir string) (Manifest, error) {
	var manifest Manifest

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return manifest, fmt.Errorf("%w: no index at %s", types.ErrIndexUnavailable, dir)
	}
	if err != nil {
		return manifest, fmt.Errorf("%w: %v", types.ErrIndexUnavailable, err)
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("%w: bad manifest: %v", types.ErrCorruptIndex, err)
	}
	return manifest, nil
}

// Load reads the index persisted in dir without computing any embeddings.
func Load(ctx context.Context, dir string, expect Expect, config IndexConfig) (*Index, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", types.ErrIncompatibleIndex, manifest.Version, FormatVersion)
	}
	if expect.ModelID != "" && manifest.EmbeddingModel != expect.ModelID {
		return nil, fmt.Errorf("%w: built with %q, embedder is %q", types.ErrIncompatibleIndex, manifest.EmbeddingModel, expect.ModelID)
	}
	if expect.Dimension != 0 && manifest.Dimension != expect.Dimension {
		return nil, fmt.Errorf("%w: dimension %d, want %d", types.ErrIncompatibleIndex, manifest.Dimension, expect.Dimension)
	}

	chunks, err := readChunks(ctx, filepath.Join(dir, DataFile), manifest.Dimension)
	if err != nil {
		return nil, err
	}
	if len(chunks) != manifest.Chunks {
		return nil, fmt.Errorf("%w: %d chunks stored, manifest lists %d", types.ErrCorruptIndex, len(chunks), manifest.Chunks)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: index at %s is empty", types.ErrCorruptIndex, dir)
	}

	if config.ModelID == "" {
		config.ModelID = manifest.EmbeddingModel
	}
	if config.Source == "" {
		config.Source = manifest.Source
	}
	ix := NewIndex(config)
	if err := ix.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}

	logger.Info("loaded %d chunks from %s", len(chunks), dir)
	return ix, nil
}

func readChunks(ctx context.Context, path string, dim int) ([]models.Chunk, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: missing index data: %v", types.ErrCorruptIndex, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT seq, id, page, content, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var (
			c       models.Chunk
			encoded string
			vector  pgvector.Vector
		)
		if err := rows.Scan(&c.Seq, &c.ID, &c.Page, &c.Text, &encoded); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", types.ErrCorruptIndex, err)
		}
		if len(encoded) < 3 {
			return nil, fmt.Errorf("%w: chunk %s: empty embedding", types.ErrCorruptIndex, c.ID)
		}
		if err := vector.Parse(encoded); err != nil {
			return nil, fmt.Errorf("%w: chunk %s: bad embedding: %v", types.ErrCorruptIndex, c.ID, err)
		}
		c.Embedding = vector.Slice()
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, manifest lists %d", types.ErrCorruptIndex, c.ID, len(c.Embedding), dim)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}
	return chunks, nil
}
