package processor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/seerah/internal/models"
)

// DefaultSeparators are tried in order: paragraphs, lines, sentence ends,
// clauses, words and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", ", ", " ", ""}

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}
	// the empty separator guarantees a hard split below ChunkSize
	if config.Separators[len(config.Separators)-1] != "" {
		config.Separators = append(append([]string{}, config.Separators...), "")
	}

	return Processor{
		config: config,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
			textsplitter.WithSeparators(config.Separators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
}

func (p *Processor) Config() ProcessorConfig {
	return p.config
}

// Process splits every page of doc into chunks. Pages are split
// independently so each chunk carries exactly the page it was cut from.
// Sequence numbers start at firstSeq and follow output order.
func (p *Processor) Process(doc models.Document, firstSeq int) ([]models.Chunk, error) {
	pages := make([]schema.Document, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		pages = append(pages, schema.Document{
			PageContent: page.Text,
			Metadata:    map[string]any{"page": page.Number},
		})
	}

	split, err := textsplitter.SplitDocuments(p.splitter, pages)
	if err != nil {
		return nil, fmt.Errorf("failed to split document: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(split))
	for _, d := range split {
		seq := firstSeq + len(chunks)
		page, _ := d.Metadata["page"].(int)
		chunks = append(chunks, models.Chunk{
			ID:   chunkID(doc.Source, seq, d.PageContent),
			Text: d.PageContent,
			Page: page,
			Seq:  seq,
		})
	}

	return chunks, nil
}

func chunkID(source string, seq int, text string) string {
	name := fmt.Sprintf("%s#%d#%s", source, seq, text)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
