package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/seerah/internal/models"
)

type htmlLoader struct {
	config LoaderConfig
	client *http.Client
}

func newHTMLLoader(config LoaderConfig) *htmlLoader {
	return &htmlLoader{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (h *htmlLoader) fetch(ctx context.Context, urlStr string) ([]models.Page, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	return h.parse(resp.Body)
}

func (h *htmlLoader) open(path string) ([]models.Page, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return h.parse(f)
}

func (h *htmlLoader) parse(r io.Reader) ([]models.Page, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", err
	}

	doc.Find("script, style, nav, footer").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())

	var pages []models.Page
	doc.Find(h.config.PageSelector).Each(func(i int, s *goquery.Selection) {
		number := i + 1
		if attr, ok := s.Attr("data-page"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(attr)); err == nil && n > 0 {
				number = n
			}
		}
		pages = append(pages, models.Page{Number: number, Text: blockText(s)})
	})

	if len(pages) == 0 {
		pages = []models.Page{{Number: 1, Text: extractMainContent(doc)}}
	}

	return pages, title, nil
}

func extractMainContent(doc *goquery.Document) string {
	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
	}

	for _, selector := range selectors {
		if selected := doc.Find(selector).First(); selected.Length() > 0 {
			return blockText(selected)
		}
	}

	return blockText(doc.Find("body"))
}

// blockText joins the text of block level elements with blank lines so
// paragraph boundaries survive for the chunker.
func blockText(s *goquery.Selection) string {
	var blocks []string
	s.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote").Each(func(_ int, b *goquery.Selection) {
		if text := strings.TrimSpace(b.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return s.Text()
	}
	return strings.Join(blocks, "\n\n")
}
