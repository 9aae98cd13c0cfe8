package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModelName = "gemini-1.5-flash-latest"

// GeminiGenerator answers with a single configured Gemini model. The registry model id only
// names the reply; Gemini has no matching entries.
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModelName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiGenerator{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPromptOrDefault(req.SystemPrompt))},
	}

	temp := float32(req.Temperature)
	maxTokens := int32(req.MaxTokens)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	prompt := genai.Text(BuildUserPrompt(req))

	var text strings.Builder
	if req.Stream {
		iter := model.GenerateContentStream(ctx, prompt)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return "", fmt.Errorf("gemini stream failed: %w", err)
			}
			g.collectText(&text, resp)
		}
	} else {
		resp, err := model.GenerateContent(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("gemini request failed: %w", err)
		}
		g.collectText(&text, resp)
	}

	if text.Len() == 0 {
		return "", errors.New("gemini returned an empty response")
	}
	return text.String(), nil
}

func (g *GeminiGenerator) collectText(b *strings.Builder, resp *genai.GenerateContentResponse) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		} else {
			g.logger.Debug("skipping non-text gemini part", "type", fmt.Sprintf("%T", part))
		}
	}
}
