package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
	"github.com/xhad/seerah/pkg/citation"
	"github.com/xhad/seerah/pkg/llm"
)

const Welcome = "Assalamu Alaikum! I'm here to help you learn about the life of Prophet Muhammad (peace be upon him) based on Martin Lings' biography. What would you like to know?"

// Pipeline answers questions. *assistant.Assistant implements it.
type Pipeline interface {
	Answer(ctx context.Context, question string) models.AnswerResult
	AnswerStream(ctx context.Context, question string) <-chan llm.StreamEvent
}

type Stats struct {
	Questions int `json:"questions_asked"`
	Responses int `json:"responses_given"`
}

// Session is one conversation. Questions are answered one at a time;
// history may be read while a question is in flight.
type Session struct {
	id       string
	created  time.Time
	pipeline Pipeline

	ask sync.Mutex // serialises questions

	mu      sync.Mutex
	history []models.ChatMessage
	pending string
}

func NewSession(pipeline Pipeline) *Session {
	s := &Session{
		id:       uuid.NewString(),
		created:  time.Now(),
		pipeline: pipeline,
	}
	s.history = []models.ChatMessage{welcome()}
	return s
}

func welcome() models.ChatMessage {
	return models.ChatMessage{Role: models.RoleAssistant, Content: Welcome, At: time.Now()}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Created() time.Time {
	return s.created
}

// Ask answers question and records the exchange. A blank question is
// ignored and leaves the history untouched.
func (s *Session) Ask(ctx context.Context, question string) (models.ChatMessage, models.AnswerResult) {
	return s.AskStream(ctx, question, nil)
}

// AskStream is Ask with the answer text passed to onDelta as it arrives.
// A nil onDelta makes a single blocking call instead.
func (s *Session) AskStream(ctx context.Context, question string, onDelta func(string)) (models.ChatMessage, models.AnswerResult) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ChatMessage{}, models.AnswerResult{Pages: []string{}, Err: types.ErrEmptyQuestion}
	}

	s.ask.Lock()
	defer s.ask.Unlock()

	s.append(models.ChatMessage{Role: models.RoleUser, Content: question, At: time.Now()})

	var result models.AnswerResult
	if onDelta == nil {
		result = s.pipeline.Answer(ctx, question)
	} else {
		result = s.consume(ctx, question, onDelta)
	}

	msg := models.ChatMessage{
		Role:    models.RoleAssistant,
		Content: Render(result),
		Pages:   result.Pages,
		At:      time.Now(),
	}
	s.append(msg)
	return msg, result
}

func (s *Session) consume(ctx context.Context, question string, onDelta func(string)) models.AnswerResult {
	var result *models.AnswerResult
	for ev := range s.pipeline.AnswerStream(ctx, question) {
		if ev.Delta != "" {
			onDelta(ev.Delta)
		}
		if ev.Result != nil {
			result = ev.Result
		}
	}
	if result == nil {
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("answer stream ended early")
		}
		return models.AnswerResult{Question: question, Answer: llm.ErrorAnswer(err), Pages: []string{}, Err: err}
	}
	return *result
}

// Render is the chat text for result: the answer followed by its
// sources, or an apology when the pipeline failed.
func Render(result models.AnswerResult) string {
	if result.Failed() {
		return fmt.Sprintf("❌ Sorry, I encountered an error: %v", result.Err)
	}
	if len(result.Pages) == 0 {
		return result.Answer
	}
	return result.Answer + "\n\n" + citation.Format(result.Pages)
}

// QueuePreset selects sample question i to be asked by the next
// ProcessPending.
func (s *Session) QueuePreset(i int) (string, error) {
	questions := SampleQuestions()
	if i < 0 || i >= len(questions) {
		return "", fmt.Errorf("no sample question %d (have %d)", i, len(questions))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = questions[i]
	return s.pending, nil
}

// Pending returns the queued preset question, if any.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// ProcessPending asks the queued preset question. ok is false when
// nothing was queued.
func (s *Session) ProcessPending(ctx context.Context) (msg models.ChatMessage, result models.AnswerResult, ok bool) {
	s.mu.Lock()
	question := s.pending
	s.pending = ""
	s.mu.Unlock()

	if question == "" {
		return models.ChatMessage{}, models.AnswerResult{}, false
	}
	msg, result = s.Ask(ctx, question)
	return msg, result, true
}

// History returns a copy of the conversation so far.
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.history...)
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	for _, m := range s.history {
		switch m.Role {
		case models.RoleUser:
			stats.Questions++
		case models.RoleAssistant:
			stats.Responses++
		}
	}
	return stats
}

// Reset starts the conversation over from the welcome message.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = []models.ChatMessage{welcome()}
	s.pending = ""
}

// Export renders the conversation as a markdown transcript.
func (s *Session) Export() string {
	return Export(s.History())
}

func (s *Session) append(m models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
}
