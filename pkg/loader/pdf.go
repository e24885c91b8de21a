package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/xhad/seerah/internal/models"
)

func loadPDF(ctx context.Context, path string) ([]models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	docs, err := documentloaders.NewPDF(f, info.Size()).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	pages := make([]models.Page, 0, len(docs))
	for i, doc := range docs {
		number, ok := doc.Metadata["page"].(int)
		if !ok {
			number = i + 1
		}
		pages = append(pages, models.Page{Number: number, Text: doc.PageContent})
	}
	return pages, nil
}
