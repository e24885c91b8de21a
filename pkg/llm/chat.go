package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/types"
	"github.com/xhad/seerah/pkg/citation"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // "openai" or "ollama"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Template    string

	// LLM replaces the provider client when set.
	LLM llms.Model
}

// ChatEngine answers a question from retrieved passages with one LLM call.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	prompt prompts.PromptTemplate
}

var _ types.Synthesizer = (*ChatEngine)(nil)

// StreamEvent is one message of a streamed answer. The final event carries
// the complete result and no delta.
type StreamEvent struct {
	Delta  string
	Result *models.AnswerResult
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.Model == "" {
		if config.Provider == "ollama" {
			config.Model = "mistral"
		} else {
			config.Model = "gpt-4o-mini"
		}
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Template == "" {
		config.Template = DefaultTemplate
	}

	model := config.LLM
	if model == nil {
		var err error
		model, err = newChatModel(config)
		if err != nil {
			return nil, err
		}
	}

	return &ChatEngine{
		config: config,
		llm:    model,
		prompt: prompts.NewPromptTemplate(config.Template, []string{"context", "question"}),
	}, nil
}

func newChatModel(config ChatConfig) (llms.Model, error) {
	httpClient := &http.Client{Timeout: config.Timeout}

	switch config.Provider {
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("%w: OpenAI chat needs an API key", types.ErrMissingCredential)
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
			openai.WithHTTPClient(httpClient),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{
			ollama.WithModel(config.Model),
			ollama.WithHTTPClient(httpClient),
		}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}

// Prompt renders the full prompt sent to the model.
func (ce *ChatEngine) Prompt(question string, chunks []models.ScoredChunk) (string, error) {
	return ce.prompt.Format(map[string]any{
		"context":  FormatContext(chunks),
		"question": strings.TrimSpace(question),
	})
}

// Answer asks the model once. It never returns an error: a failed call
// yields a result whose Err is set, whose Answer explains the failure and
// whose Pages are empty.
func (ce *ChatEngine) Answer(ctx context.Context, question string, chunks []models.ScoredChunk) models.AnswerResult {
	return ce.generate(ctx, question, chunks)
}

// ChatStream is Answer with the text delivered incrementally.
func (ce *ChatEngine) ChatStream(ctx context.Context, question string, chunks []models.ScoredChunk) <-chan StreamEvent {
	events := make(chan StreamEvent)

	go func() {
		defer close(events)

		result := ce.generate(ctx, question, chunks, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			select {
			case events <- StreamEvent{Delta: string(chunk)}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))

		select {
		case events <- StreamEvent{Result: &result}:
		case <-ctx.Done():
		}
	}()

	return events
}

func (ce *ChatEngine) generate(ctx context.Context, question string, chunks []models.ScoredChunk, opts ...llms.CallOption) models.AnswerResult {
	result := models.AnswerResult{Question: strings.TrimSpace(question), Pages: []string{}}

	prompt, err := ce.Prompt(question, chunks)
	if err != nil {
		return failed(result, fmt.Errorf("failed to render prompt: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	opts = append([]llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}, opts...)

	start := time.Now()
	answer, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt, opts...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s: %w", ce.config.Timeout, err)
		}
		return failed(result, fmt.Errorf("%w: %w", types.ErrServiceUnavailable, err))
	}
	logger.Debug("answer generated in %s", time.Since(start).Round(time.Millisecond))

	result.Answer = strings.TrimSpace(answer)
	result.Pages = citation.Extract(chunks)
	return result
}

func failed(result models.AnswerResult, err error) models.AnswerResult {
	logger.Warn("answer failed: %v", err)
	result.Err = err
	result.Answer = ErrorAnswer(err)
	result.Pages = []string{}
	return result
}

// ErrorAnswer is the user facing text for a failed question.
func ErrorAnswer(err error) string {
	return fmt.Sprintf("I encountered an error while processing your question: %v. Please try rephrasing your question.", err)
}
