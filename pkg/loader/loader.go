package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
)

type LoaderConfig struct {
	PageSelector string
	Timeout      time.Duration
	OnProgress   func(page int) // called once per loaded page
}

type Loader struct {
	config LoaderConfig
	html   *htmlLoader
}

func NewWithConfig(config LoaderConfig) *Loader {
	if config.PageSelector == "" {
		config.PageSelector = "[data-page], .page"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Loader{
		config: config,
		html:   newHTMLLoader(config),
	}
}

func New() *Loader {
	return NewWithConfig(LoaderConfig{})
}

// Load reads source into a paginated document. The format is chosen from
// the URL scheme or the file extension.
func (l *Loader) Load(ctx context.Context, source string) (models.Document, error) {
	var (
		pages []models.Page
		title string
		err   error
	)

	switch ext := strings.ToLower(filepath.Ext(source)); {
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		pages, title, err = l.html.fetch(ctx, source)
	case ext == ".pdf":
		pages, err = loadPDF(ctx, source)
	case ext == ".html" || ext == ".htm":
		pages, title, err = l.html.open(source)
	case ext == ".txt" || ext == ".text" || ext == ".md":
		pages, err = loadText(ctx, source)
	default:
		return models.Document{}, fmt.Errorf("unsupported source format: %s", source)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load %s: %w", source, err)
	}

	doc := models.Document{Source: source, Title: title}
	for _, page := range pages {
		page.Text = Normalize(page.Text)
		doc.Pages = append(doc.Pages, page)
		if l.config.OnProgress != nil {
			l.config.OnProgress(page.Number)
		}
	}

	if !hasText(doc) {
		return models.Document{}, fmt.Errorf("%w: %s", types.ErrEmptyDocument, source)
	}

	logger.Debug("loaded %d pages from %s", len(doc.Pages), source)
	return doc, nil
}

// Exists reports whether a local source is present. URLs are assumed to exist.
func Exists(source string) bool {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return true
	}
	_, err := os.Stat(source)
	return err == nil
}

func hasText(doc models.Document) bool {
	for _, page := range doc.Pages {
		if page.Text != "" {
			return true
		}
	}
	return false
}

var (
	spaceRun = regexp.MustCompile(`[ \t\v\x{00a0}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize drops invalid UTF-8, collapses runs of horizontal whitespace and
// keeps at most one blank line between paragraphs.
func Normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
