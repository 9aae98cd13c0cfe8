package core

import "gwi.com/chat-agent/internal/utils"

const (
	DefaultChatTitle = "New chat"

	titleMaxRunes = 50
	titleMarker   = "..."
)

// ChatTitleFrom derives a chat title from the first user message.
func ChatTitleFrom(firstMessage string) string {
	return utils.TruncateRunes(firstMessage, titleMaxRunes, titleMarker)
}
