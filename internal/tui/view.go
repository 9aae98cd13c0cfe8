package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"gwi.com/chat-agent/internal/core"
	"gwi.com/chat-agent/internal/store"
)

func (m *Model) View() string {
	if m.listOpen {
		return m.listView()
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s · %s", currentTitle(m.state), core.ModelDisplayName(m.state.ModelID))))
	if pc := m.state.PageContext; pc != nil {
		b.WriteString(helpStyle.Render("  [page: " + pc.URL + "]"))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · ctrl+n new · ctrl+x clear · ctrl+l chats · ctrl+o model · esc quit"))
	return b.String()
}

func currentTitle(state core.State) string {
	if state.ChatID == nil {
		return core.DefaultChatTitle
	}
	for _, c := range state.Chats {
		if c.ID == *state.ChatID {
			return c.Title
		}
	}
	return core.DefaultChatTitle
}

func renderMessages(state core.State, renderer *glamour.TermRenderer, footer string) string {
	if len(state.Messages) == 0 && footer == "" {
		return helpStyle.Render("Start a conversation. A chat is created when you send the first message.")
	}

	var b strings.Builder
	for _, msg := range state.Messages {
		b.WriteString(renderMessage(msg, renderer))
		b.WriteString("\n\n")
	}
	b.WriteString(footer)
	return strings.TrimRight(b.String(), "\n")
}

func renderMessage(msg store.Message, renderer *glamour.TermRenderer) string {
	if msg.Role == store.RoleUser {
		return userLabel.Render("You") + "\n" + msg.Content
	}

	label := "Assistant"
	if msg.Model != nil {
		label = *msg.Model
	}
	content := msg.Content
	if renderer != nil {
		if rendered, err := renderer.Render(msg.Content); err == nil {
			content = strings.TrimSpace(rendered)
		}
	}
	return assistantLabel.Render(label) + "\n" + content
}

func (m *Model) listView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Chats"))
	b.WriteString("\n\n")

	if len(m.state.Chats) == 0 {
		b.WriteString(helpStyle.Render("No chats yet."))
	}
	for i, c := range m.state.Chats {
		line := chatListLine(c)
		if i == m.listIdx {
			b.WriteString(selectedStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice))
	}
	b.WriteString("\n" + helpStyle.Render("enter open · d delete · esc back"))
	return listStyle.Render(b.String())
}

func chatListLine(c store.Chat) string {
	return fmt.Sprintf("%s  %s", c.Title, helpStyle.Render(humanize.Time(c.UpdatedAt)))
}
