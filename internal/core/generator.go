package core

import (
	"context"
	"fmt"
	"log/slog"

	"gwi.com/chat-agent/internal/config"
)

// GenerationRequest carries everything a backend needs to produce one reply.
type GenerationRequest struct {
	Prompt       string
	ModelID      string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Stream       bool
	PageContext  *PageContext
}

// ResponseGenerator produces reply text. Implementations must return promptly once ctx is done.
type ResponseGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// NewGenerator builds the backend named by cfg.GeneratorBackend. The returned close func
// releases backend clients and is never nil.
func NewGenerator(ctx context.Context, cfg config.Config, logger *slog.Logger) (ResponseGenerator, func() error, error) {
	noop := func() error { return nil }
	switch cfg.GeneratorBackend {
	case config.GeneratorMock:
		return NewMockGenerator(cfg.MockMinDelay, cfg.MockJitter), noop, nil
	case config.GeneratorGemini:
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	case config.GeneratorOpenAI:
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown generator backend %q", cfg.GeneratorBackend)
	}
}
