package loader

import (
	"context"
	"os"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/xhad/seerah/internal/models"
)

// loadText reads a plain text file. Form feeds separate pages.
func loadText(ctx context.Context, path string) ([]models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, doc := range docs {
		content.WriteString(doc.PageContent)
	}

	var pages []models.Page
	for i, text := range strings.Split(content.String(), "\f") {
		pages = append(pages, models.Page{Number: i + 1, Text: text})
	}
	return pages, nil
}
