package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint. Registry ids are sent
// as-is, so a base URL pointing at Perplexity serves the sonar entries.
type OpenAIGenerator struct {
	client openai.Client
}

func NewOpenAIGenerator(apiKey, baseURL string) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{client: openai.NewClient(opts...)}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: req.ModelID,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptOrDefault(req.SystemPrompt)),
			openai.UserMessage(BuildUserPrompt(req)),
		},
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}

	if !req.Stream {
		resp, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no response choices returned")
		}
		return resp.Choices[0].Message.Content, nil
	}

	stream := g.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		acc.AddChunk(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("chat completion stream failed: %w", err)
	}
	if len(acc.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}
	return acc.Choices[0].Message.Content, nil
}
