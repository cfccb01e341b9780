// Package answer synthesizes natural-language answers from retrieved chunks
// with an OpenAI chat model. Synthesis is optional: without an API key the
// synthesizer reports itself disabled and retrieval runs without it.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrDisabled indicates no API key was configured for synthesis.
var ErrDisabled = errors.New("answer synthesis disabled")

const systemPrompt = "You answer questions using only the provided context. " +
	"Cite the bracketed source numbers you used. " +
	"If the context does not contain the answer, say so instead of guessing."

// Synthesizer turns a query plus its retrieved chunks into a prose answer.
type Synthesizer interface {
	Generate(ctx context.Context, query string, chunks []models.ScoredChunk) (string, error)
	Enabled() bool
}

// Options configures the OpenAI-backed synthesizer.
type Options struct {
	// APIKey enables synthesis. Empty disables it.
	APIKey string
	// BaseURL overrides the API endpoint.
	BaseURL string
	// Model defaults to gpt-4o-mini.
	Model string
	// MaxTokens bounds the completion. Defaults to 512.
	MaxTokens int
	// Temperature defaults to 0.2.
	Temperature float64
}

// OpenAISynthesizer generates answers with a chat completion per query.
type OpenAISynthesizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewOpenAISynthesizer builds a synthesizer. Without an API key the returned
// synthesizer is disabled rather than an error, so callers can wire it
// unconditionally.
func NewOpenAISynthesizer(opts Options, logger *zap.Logger) *OpenAISynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &OpenAISynthesizer{
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: float32(opts.Temperature),
		logger:      logger,
	}
	if s.model == "" {
		s.model = "gpt-4o-mini"
	}
	if s.maxTokens <= 0 {
		s.maxTokens = 512
	}
	if opts.Temperature == 0 {
		s.temperature = 0.2
	}

	if opts.APIKey == "" {
		return s
	}

	if opts.BaseURL != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		cfg.BaseURL = opts.BaseURL
		s.client = openai.NewClientWithConfig(cfg)
	} else {
		s.client = openai.NewClient(opts.APIKey)
	}
	return s
}

// Enabled reports whether an API key was configured.
func (s *OpenAISynthesizer) Enabled() bool {
	return s.client != nil
}

// Generate answers query from chunks. Fails with ErrDisabled when no API key
// was configured.
func (s *OpenAISynthesizer) Generate(ctx context.Context, query string, chunks []models.ScoredChunk) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(query, chunks)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.logger.Debug("synthesized answer",
		zap.String("model", s.model),
		zap.Int("context_chunks", len(chunks)),
		zap.Int("answer_length", len(text)))
	return text, nil
}

// BuildPrompt renders the retrieval context and question. Chunks appear in
// rank order, numbered so the model can cite them.
func BuildPrompt(query string, chunks []models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[%d] (from %s)\n%s\n", i+1, c.SourceID, c.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}
