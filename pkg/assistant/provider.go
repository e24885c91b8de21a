package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
	"github.com/xhad/seerah/pkg/config"
	"github.com/xhad/seerah/pkg/llm"
	"github.com/xhad/seerah/pkg/loader"
	"github.com/xhad/seerah/pkg/processor"
	"github.com/xhad/seerah/pkg/retriever"
	"github.com/xhad/seerah/pkg/store"
)

// Options customises how a Provider builds its assistant.
type Options struct {
	// Embedder and LLM replace the configured model clients when set.
	Embedder types.Embedder
	LLM      llms.Model

	// OnStage is called as the index build moves through its stages.
	OnStage func(stage string)
	// OnEmbed reports embedding progress while the index is built.
	OnEmbed func(done, total int)
}

// Provider hands out one shared Assistant, building it on first use. A
// failed build is not remembered, so the next Get tries again.
type Provider struct {
	mu        sync.Mutex
	config    *config.Config
	options   Options
	assistant *Assistant
}

func NewProvider(cfg *config.Config, options Options) *Provider {
	return &Provider{config: cfg, options: options}
}

// Get returns the shared assistant, loading the persisted index or
// building it from the source document when none is usable.
func (p *Provider) Get(ctx context.Context) (*Assistant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.assistant != nil {
		return p.assistant, nil
	}

	a, err := p.build(ctx, false)
	if err != nil {
		return nil, err
	}
	p.assistant = a
	return a, nil
}

// Rebuild re-ingests the source document, replacing the persisted index.
func (p *Provider) Rebuild(ctx context.Context) (*Assistant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.build(ctx, true)
	if err != nil {
		return nil, err
	}
	if p.assistant != nil {
		p.assistant.Close()
	}
	p.assistant = a
	return a, nil
}

func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.assistant != nil {
		p.assistant.Close()
		p.assistant = nil
	}
}

func (p *Provider) stage(name string) {
	logger.Debug("%s", name)
	if p.options.OnStage != nil {
		p.options.OnStage(name)
	}
}

func (p *Provider) build(ctx context.Context, force bool) (*Assistant, error) {
	cfg := p.config
	if p.options.Embedder == nil || p.options.LLM == nil {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
	}

	embedder, err := p.embedder()
	if err != nil {
		return nil, err
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
		Separators:   cfg.Processor.Separators,
	})

	a := &Assistant{
		embedder:  embedder,
		processor: proc,
		info: Info{
			Backend:        cfg.Index.Backend,
			EmbeddingModel: embedder.ModelID(),
			Source:         cfg.Source.Path,
		},
	}

	switch cfg.Index.Backend {
	case "pgvector":
		err = p.openPGVector(ctx, a, force)
	default:
		err = p.openLocal(ctx, a, force)
	}
	if err != nil {
		return nil, err
	}

	a.retriever, err = retriever.NewWithConfig(retriever.Config{
		K:              cfg.Retriever.K,
		FetchK:         cfg.Retriever.FetchK,
		Lambda:         cfg.Retriever.Lambda,
		ScoreThreshold: cfg.Retriever.ScoreThreshold,
	}, a.index, embedder)
	if err != nil {
		a.index.Close()
		return nil, err
	}

	a.engine, err = llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		LLM:         p.options.LLM,
	})
	if err != nil {
		a.index.Close()
		return nil, err
	}

	a.info.Chunks = a.index.Len()
	a.info.Dimension = a.index.Dimension()
	logger.Info("assistant ready: %d chunks, dimension %d (%s)", a.info.Chunks, a.info.Dimension, a.info.Backend)
	return a, nil
}

func (p *Provider) embedder() (types.Embedder, error) {
	if p.options.Embedder != nil {
		return p.options.Embedder, nil
	}

	cfg := p.config
	return llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		BatchSize:  cfg.Embedding.BatchSize,
		RateLimit:  cfg.Embedding.RateLimit,
		Timeout:    cfg.LLM.Timeout,
		OnProgress: p.options.OnEmbed,
	})
}

func (p *Provider) openLocal(ctx context.Context, a *Assistant, force bool) error {
	dir := p.config.Index.Dir
	a.info.Location = dir
	indexConfig := store.IndexConfig{ModelID: a.embedder.ModelID(), Source: p.config.Source.Path, Embedder: a.embedder}

	if !force {
		p.stage("Loading index")
		ix, err := store.Load(ctx, dir, store.Expect{ModelID: a.embedder.ModelID()}, indexConfig)
		switch {
		case err == nil:
			a.index = ix
			a.persist = func(ctx context.Context) error { return ix.Save(ctx, dir) }
			return nil
		case errors.Is(err, types.ErrIndexUnavailable):
			logger.Info("no index at %s, building one", dir)
		case errors.Is(err, types.ErrIncompatibleIndex), errors.Is(err, types.ErrCorruptIndex):
			logger.Warn("rebuilding index: %v", err)
		default:
			return err
		}
	}

	chunks, err := p.ingest(ctx, a)
	if err != nil {
		return err
	}

	ix := store.NewIndex(indexConfig)
	if err := ix.Add(ctx, chunks); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	p.stage("Saving index")
	if err := ix.Save(ctx, dir); err != nil {
		return err
	}

	a.index = ix
	a.persist = func(ctx context.Context) error { return ix.Save(ctx, dir) }
	return nil
}

func (p *Provider) openPGVector(ctx context.Context, a *Assistant, force bool) error {
	cfg := p.config
	a.info.Location = cfg.Database.TableName

	p.stage("Connecting to database")
	vs, err := store.NewPGVectorWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
		ModelID:    a.embedder.ModelID(),
	})
	if err != nil {
		return err
	}

	if !force {
		if err := vs.CheckCompatible(ctx); err != nil {
			if !errors.Is(err, types.ErrIncompatibleIndex) {
				vs.Close()
				return err
			}
			logger.Warn("rebuilding index: %v", err)
			force = true
		}
	}

	if force || vs.Len() == 0 {
		chunks, err := p.ingest(ctx, a)
		if err != nil {
			vs.Close()
			return err
		}
		if err := vs.Reset(ctx); err != nil {
			vs.Close()
			return err
		}
		p.stage("Storing chunks")
		if err := vs.Add(ctx, chunks); err != nil {
			vs.Close()
			return err
		}
	}

	a.index = vs
	return nil
}

// ingest loads the source document and returns its embedded chunks.
func (p *Provider) ingest(ctx context.Context, a *Assistant) ([]models.Chunk, error) {
	p.stage("Loading document")
	l := loader.NewWithConfig(loader.LoaderConfig{
		PageSelector: p.config.Source.PageSelector,
		Timeout:      p.config.Source.Timeout,
	})
	doc, err := l.Load(ctx, p.config.Source.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded %d pages from %s", len(doc.Pages), doc.Source)

	p.stage("Embedding chunks")
	return embedDocument(ctx, a.processor, a.embedder, doc, 0)
}
