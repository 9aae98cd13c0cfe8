// Package tui is a terminal front end driving one in-process chat session.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"gwi.com/chat-agent/internal/core"
)

const (
	storeTimeout = 15 * time.Second
	pageCommand  = "/page "
)

type (
	replyMsg struct {
		outcome core.Outcome
		err     error
	}
	opMsg struct {
		op  string
		err error
	}
)

type Model struct {
	service  *core.ChatService
	session  *core.Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	state   core.State
	waiting bool
	notice  string
	width   int
	height  int

	listOpen bool
	listIdx  int
}

func New(service *core.ChatService, session *core.Session) *Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /page <url> to attach a page..."
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(muted)
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	m := &Model{
		service:  service,
		session:  session,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, refreshChats(m.session))
}

// refresh pulls a fresh snapshot from the session and re-renders the conversation.
func (m *Model) refresh() {
	m.state = m.session.State()
	if m.listIdx >= len(m.state.Chats) {
		m.listIdx = max(0, len(m.state.Chats)-1)
	}
	m.viewport.SetContent(renderMessages(m.state, m.renderer, m.spinnerLine()))
	m.viewport.GotoBottom()
}

func (m *Model) spinnerLine() string {
	if !m.waiting {
		return ""
	}
	return m.spinner.View() + " " + helpStyle.Render("thinking...")
}

func sendMessage(sess *core.Session, text string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := sess.SendUserMessage(context.Background(), text)
		return replyMsg{outcome: outcome, err: err}
	}
}

func refreshChats(sess *core.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return opMsg{op: "refresh", err: sess.RefreshChats(ctx)}
	}
}

func selectChat(sess *core.Session, chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return opMsg{op: "select", err: sess.SelectChat(ctx, chatID)}
	}
}

func deleteChat(sess *core.Session, chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return opMsg{op: "delete", err: sess.DeleteChat(ctx, chatID)}
	}
}

func analyzePage(svc *core.ChatService, sess *core.Session, rawURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		_, err := svc.AnalyzePage(ctx, sess, rawURL)
		return opMsg{op: "page", err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case replyMsg:
		m.waiting = false
		m.notice = ""
		if msg.err != nil {
			m.notice = "Error: " + msg.err.Error()
		}
		m.refresh()
		return m, nil

	case opMsg:
		m.notice = ""
		if msg.err != nil {
			m.notice = "Error: " + msg.err.Error()
		} else if msg.op == "select" {
			m.listOpen = false
		} else if pc := m.session.State().PageContext; msg.op == "page" && pc != nil {
			m.notice = "Page attached: " + pc.URL
		}
		m.refresh()
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = max(3, msg.Height-6)
		m.input.Width = msg.Width - 4

		style := "dark"
		if !lipgloss.HasDarkBackground() {
			style = "light"
		}
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(style),
			glamour.WithWordWrap(max(20, msg.Width-6)),
		)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.listOpen {
			return m.updateList(msg)
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlN:
			m.session.StartNewChat()
			m.notice = ""
			m.refresh()
			return m, nil

		case tea.KeyCtrlX:
			m.session.ClearCurrentChat()
			m.notice = ""
			m.refresh()
			return m, nil

		case tea.KeyCtrlO:
			m.session.SelectModel(nextModel(m.state.ModelID))
			m.refresh()
			return m, nil

		case tea.KeyCtrlL:
			m.listOpen = true
			m.listIdx = 0
			return m, refreshChats(m.session)

		case tea.KeyEnter:
			input := strings.TrimSpace(m.input.Value())
			if input == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()

			if rawURL, ok := strings.CutPrefix(input, pageCommand); ok {
				m.notice = "Analyzing " + rawURL + "..."
				return m, analyzePage(m.service, m.session, strings.TrimSpace(rawURL))
			}

			m.waiting = true
			m.notice = ""
			return m, tea.Batch(sendMessage(m.session, input), m.spinner.Tick)
		}
	}

	m.input, tiCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chats := m.state.Chats
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+l":
		m.listOpen = false
		return m, nil
	case "up", "k":
		if len(chats) > 0 {
			m.listIdx = (m.listIdx - 1 + len(chats)) % len(chats)
		}
	case "down", "j":
		if len(chats) > 0 {
			m.listIdx = (m.listIdx + 1) % len(chats)
		}
	case "enter":
		if len(chats) > 0 {
			return m, selectChat(m.session, chats[m.listIdx].ID)
		}
	case "d", "delete":
		if len(chats) > 0 {
			return m, deleteChat(m.session, chats[m.listIdx].ID)
		}
	}
	return m, nil
}

// nextModel cycles through the registry.
func nextModel(current string) string {
	models := core.AvailableModels()
	for i, md := range models {
		if md.ID == current {
			return models[(i+1)%len(models)].ID
		}
	}
	return models[0].ID
}

func NewProgram(service *core.ChatService, session *core.Session) *tea.Program {
	return tea.NewProgram(New(service, session), tea.WithAltScreen())
}
