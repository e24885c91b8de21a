// Package testutil provides deterministic stand-ins for the model services.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/xhad/seerah/internal/types"
)

// Embedder embeds text as word counts over a fixed vocabulary, so texts
// sharing no vocabulary word have similarity 0.
type Embedder struct {
	vocab map[string]int
	Err   error // returned by every call when set

	calls atomic.Int64
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedder(vocab ...string) *Embedder {
	e := &Embedder{vocab: make(map[string]int, len(vocab))}
	for _, w := range vocab {
		w = strings.ToLower(w)
		if _, ok := e.vocab[w]; !ok {
			e.vocab[w] = len(e.vocab)
		}
	}
	return e
}

func (e *Embedder) ModelID() string {
	return fmt.Sprintf("test:vocab-%d", len(e.vocab))
}

// Calls counts EmbedDocuments and EmbedQuery invocations.
func (e *Embedder) Calls() int {
	return int(e.calls.Load())
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.Err != nil {
		return nil, e.Err
	}
	return e.embed(text), nil
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, len(e.vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if i, ok := e.vocab[w]; ok {
			vec[i]++
		}
	}
	return vec
}
