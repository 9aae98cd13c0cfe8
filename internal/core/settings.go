package core

import "strings"

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MaxTokensLimit = 4096

	DefaultSystemPrompt = "You are a helpful AI assistant. Be friendly and informative."
)

// Settings are per-session generation parameters; they are not persisted per chat.
type Settings struct {
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
	Stream       bool    `json:"stream"`
}

func DefaultSettings() Settings {
	return Settings{
		Temperature:  0.7,
		MaxTokens:    1000,
		SystemPrompt: DefaultSystemPrompt,
		Stream:       true,
	}
}

// Validate checks the UI limits only; the selected model's own ceiling is not enforced.
func (s Settings) Validate() error {
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		return &ValidationError{Field: "temperature", Message: "must be between 0.0 and 2.0"}
	}
	if s.MaxTokens < 1 || s.MaxTokens > MaxTokensLimit {
		return &ValidationError{Field: "max_tokens", Message: "must be between 1 and 4096"}
	}
	return nil
}

// PageContext is opaque text from the page-analysis collaborator.
type PageContext struct {
	Content string `json:"content"`
	URL     string `json:"url"`
}

func (p PageContext) empty() bool {
	return strings.TrimSpace(p.Content) == ""
}
