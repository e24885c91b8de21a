// Package citation turns retrieved passages into page references.
package citation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/seerah/internal/models"
)

// MaxListed is the number of pages shown before the remainder is summarised.
const MaxListed = 5

// Extract returns the page numbers of chunks, deduplicated in first
// occurrence order. Chunks without a page are skipped.
func Extract(chunks []models.ScoredChunk) []string {
	pages := make([]string, 0, len(chunks))
	seen := make(map[int]bool)
	for _, c := range chunks {
		if c.Page <= 0 || seen[c.Page] {
			continue
		}
		seen[c.Page] = true
		pages = append(pages, strconv.Itoa(c.Page))
	}
	return pages
}

// Format renders pages as the citation line shown under an answer.
func Format(pages []string) string {
	if len(pages) == 0 {
		return "**Sources:** No specific pages referenced"
	}

	unique := dedupe(pages)
	if len(unique) == 0 {
		return "**Sources:** Page numbers not available"
	}

	switch {
	case len(unique) == 1:
		return fmt.Sprintf("**Source:** Page %s", unique[0])
	case len(unique) <= MaxListed:
		return fmt.Sprintf("**Sources:** Pages %s", strings.Join(unique, ", "))
	default:
		return fmt.Sprintf("**Sources:** Pages %s and %d more",
			strings.Join(unique[:MaxListed], ", "), len(unique)-MaxListed)
	}
}

func dedupe(pages []string) []string {
	unique := make([]string, 0, len(pages))
	seen := make(map[string]bool)
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" || p == "unknown" || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	return unique
}
