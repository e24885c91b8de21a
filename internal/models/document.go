package models

import "time"

// Page is one page of the source document. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Document is the loaded source, an ordered sequence of pages.
type Document struct {
	Source string
	Title  string
	Pages  []Page
}

// Chunk is a passage cut from a single page. Page 0 means the passage
// carries no page attribute.
type Chunk struct {
	ID        string
	Text      string
	Page      int
	Seq       int
	Embedding []float32
}

// ScoredChunk is a chunk together with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk
	Score float32
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a conversation history.
type ChatMessage struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Pages   []string  `json:"pages,omitempty"`
	At      time.Time `json:"at"`
}

// AnswerResult is the outcome of one question. When Err is set the
// pipeline failed and Answer holds a message meant for the user.
type AnswerResult struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Pages    []string `json:"pages"`
	Err      error    `json:"-"`
}

// Failed reports whether the pipeline failed to produce a grounded answer.
func (r AnswerResult) Failed() bool {
	return r.Err != nil
}
