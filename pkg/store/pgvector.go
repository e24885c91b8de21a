package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
	ModelID    string
}

// PGVectorStore keeps chunks in a Postgres table with a pgvector column.
type PGVectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	count  atomic.Int64
}

var _ types.VectorIndex = (*PGVectorStore)(nil)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewPGVectorWithConfig(ctx context.Context, config VectorStoreConfig) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "biography_chunks"
	}
	if !tableName.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name: %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &PGVectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			page INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			embedding_model TEXT NOT NULL
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	// Create vector index
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	var count int64
	err = vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count rows: %v", err)
	}
	vs.count.Store(count)

	return nil
}

// CheckCompatible fails with ErrIncompatibleIndex when stored rows were
// embedded by a different model.
func (vs *PGVectorStore) CheckCompatible(ctx context.Context) error {
	query := fmt.Sprintf("SELECT embedding_model FROM %s WHERE embedding_model <> $1 LIMIT 1", vs.config.TableName)

	var other string
	err := vs.pool.QueryRow(ctx, query, vs.config.ModelID).Scan(&other)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check embedding model: %v", err)
	}
	return fmt.Errorf("%w: table %s holds %q embeddings, embedder is %q",
		types.ErrIncompatibleIndex, vs.config.TableName, other, vs.config.ModelID)
}

// Reset removes every stored chunk.
func (vs *PGVectorStore) Reset(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName)); err != nil {
		return fmt.Errorf("failed to truncate table: %v", err)
	}
	vs.count.Store(0)
	return nil
}

func (vs *PGVectorStore) Add(ctx context.Context, chunks []models.Chunk) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, seq, page, content, embedding, embedding_model)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			embedding_model = EXCLUDED.embedding_model`,
		vs.config.TableName)

	// Insert chunks in batches, one transaction per batch
	for start := 0; start < len(chunks); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			if len(c.Embedding) != vs.config.VectorDim {
				return fmt.Errorf("%w: chunk %s has dimension %d, table has %d",
					types.ErrIncompatibleIndex, c.ID, len(c.Embedding), vs.config.VectorDim)
			}
			batch.Queue(stmt, c.ID, c.Seq, c.Page, sanitizeUTF8(c.Text), pgvector.NewVector(c.Embedding), vs.config.ModelID)
		}

		tx, err := vs.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %v", err)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to insert chunks: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %v", err)
		}
	}

	var count int64
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count rows: %v", err)
	}
	vs.count.Store(count)

	return nil
}

func (vs *PGVectorStore) Candidates(ctx context.Context, query []float32, n int) ([]models.ScoredChunk, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(query) != vs.config.VectorDim {
		return nil, fmt.Errorf("%w: query dimension %d, table dimension %d",
			types.ErrIncompatibleIndex, len(query), vs.config.VectorDim)
	}

	// Query similar chunks
	sqlQuery := fmt.Sprintf(`
		SELECT id, seq, page, content, embedding, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sqlQuery, pgvector.NewVector(query), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.ScoredChunk
	for rows.Next() {
		var (
			c      models.ScoredChunk
			vector pgvector.Vector
			score  float64
		)
		if err := rows.Scan(&c.ID, &c.Seq, &c.Page, &c.Text, &vector, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		c.Embedding = vector.Slice()
		c.Score = float32(score)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}

	return chunks, nil
}

func (vs *PGVectorStore) Len() int {
	return int(vs.count.Load())
}

func (vs *PGVectorStore) Dimension() int {
	return vs.config.VectorDim
}

func (vs *PGVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeUTF8 drops invalid bytes, which Postgres rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
