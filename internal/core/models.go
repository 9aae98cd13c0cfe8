package core

import "slices"

// ModelDescriptor is a selectable response-generation profile.
type ModelDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
	MaxTokens   int    `json:"max_tokens"`
}

var availableModels = []ModelDescriptor{
	{
		ID:          "gpt-4o",
		Name:        "GPT-4o",
		Provider:    "OpenAI",
		Description: "The most capable OpenAI model",
		MaxTokens:   4096,
	},
	{
		ID:          "gpt-4o-mini",
		Name:        "GPT-4o Mini",
		Provider:    "OpenAI",
		Description: "Fast and efficient model",
		MaxTokens:   16384,
	},
	{
		ID:          "llama-3.1-sonar-small-128k-online",
		Name:        "Llama 3.1 Sonar Small",
		Provider:    "Perplexity",
		Description: "Model with internet access",
		MaxTokens:   4096,
	},
	{
		ID:          "llama-3.1-sonar-large-128k-online",
		Name:        "Llama 3.1 Sonar Large",
		Provider:    "Perplexity",
		Description: "Powerful model with web search",
		MaxTokens:   4096,
	},
}

// AvailableModels returns a copy of the registry; callers cannot mutate it.
func AvailableModels() []ModelDescriptor {
	return slices.Clone(availableModels)
}

func DefaultModel() ModelDescriptor {
	return availableModels[0]
}

func FindModel(id string) (ModelDescriptor, bool) {
	for _, m := range availableModels {
		if m.ID == id {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// ModelDisplayName falls back to the id for unknown models.
func ModelDisplayName(id string) string {
	if m, ok := FindModel(id); ok {
		return m.Name
	}
	return id
}
