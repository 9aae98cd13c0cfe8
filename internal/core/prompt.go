package core

import (
	"fmt"
	"strings"
)

// maxContextRunes bounds how much page text is inlined into a prompt.
const maxContextRunes = 8000

// BuildUserPrompt folds attached page context into the user's question.
func BuildUserPrompt(req GenerationRequest) string {
	if req.PageContext == nil || req.PageContext.empty() {
		return req.Prompt
	}

	content := []rune(strings.TrimSpace(req.PageContext.Content))
	if len(content) > maxContextRunes {
		content = content[:maxContextRunes]
	}

	return fmt.Sprintf("Based on the following content of the page %s:\n\n--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\nNow, please answer my question: %s",
		req.PageContext.URL, string(content), req.Prompt)
}

func systemPromptOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultSystemPrompt
	}
	return s
}
