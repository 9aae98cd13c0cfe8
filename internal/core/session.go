package core

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"gwi.com/chat-agent/internal/store"
)

// Outcome tells the caller what a send did to the conversation.
type Outcome string

const (
	// OutcomeIgnored: empty text, a reply already pending, or no owner. Nothing changed.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeReplied: user and assistant messages were both appended.
	OutcomeReplied Outcome = "replied"
	// OutcomeFailed: the reply (or the chat creation) failed; see the returned error.
	OutcomeFailed Outcome = "failed"
	// OutcomeDiscarded: the session moved to another chat before the reply arrived.
	OutcomeDiscarded Outcome = "discarded"
)

// State is a point-in-time copy of a session for presentation.
type State struct {
	SessionID   string          `json:"session_id"`
	ChatID      *string         `json:"chat_id"`
	Messages    []store.Message `json:"messages"`
	Chats       []store.Chat    `json:"chats"`
	ModelID     string          `json:"model_id"`
	Settings    Settings        `json:"settings"`
	PageContext *PageContext    `json:"page_context,omitempty"`
	Pending     bool            `json:"pending"`
	Loading     bool            `json:"loading"`
}

// Session is the single authority for which chat a client is in and what has been said in it.
// In-memory messages are the source of truth while the session lives; writes to the store are
// best-effort and applied in order by a per-session writer.
type Session struct {
	id        string
	ownerID   int64
	store     MessageStore
	generator ResponseGenerator
	logger    *slog.Logger
	writer    *persister
	gate      *semaphore.Weighted
	now       func() time.Time

	mu         sync.Mutex
	chatID     string // empty until the first send or a select
	messages   []store.Message
	chats      []store.Chat
	modelID    string
	settings   Settings
	page       *PageContext
	pending    bool
	loading    int
	epoch      uint64
	cancelGen  context.CancelFunc
	lastActive time.Time
}

func NewSession(id string, ownerID int64, st MessageStore, gen ResponseGenerator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)
	s := &Session{
		id:        id,
		ownerID:   ownerID,
		store:     st,
		generator: gen,
		logger:    logger,
		writer:    newPersister(logger),
		gate:      semaphore.NewWeighted(1),
		now:       func() time.Time { return time.Now().UTC() },
		modelID:   DefaultModel().ID,
		settings:  DefaultSettings(),
	}
	s.lastActive = s.now()
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) OwnerID() int64 { return s.ownerID }

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		SessionID: s.id,
		Messages:  slices.Clone(s.messages),
		Chats:     slices.Clone(s.chats),
		ModelID:   s.modelID,
		Settings:  s.settings,
		Pending:   s.pending,
		Loading:   s.loading > 0,
	}
	if st.Messages == nil {
		st.Messages = []store.Message{}
	}
	if st.Chats == nil {
		st.Chats = []store.Chat{}
	}
	if s.chatID != "" {
		id := s.chatID
		st.ChatID = &id
	}
	if s.page != nil {
		pc := *s.page
		st.PageContext = &pc
	}
	return st
}

// resetLocked empties the local view and abandons any in-flight reply.
func (s *Session) resetLocked() {
	s.epoch++
	if s.cancelGen != nil {
		s.cancelGen()
		s.cancelGen = nil
	}
	s.chatID = ""
	s.messages = nil
	s.page = nil
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

// StartNewChat drops the current chat locally. No chat row is created until the next send.
func (s *Session) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.touchLocked()
}

// ClearCurrentChat resets the local view only; persisted history is untouched.
func (s *Session) ClearCurrentChat() {
	s.StartNewChat()
}

// SelectChat loads a chat's messages and makes it current. On failure the previous chat
// stays displayed, including any reply still in flight for it.
func (s *Session) SelectChat(ctx context.Context, chatID string) error {
	if strings.TrimSpace(chatID) == "" {
		return &ValidationError{Field: "chat_id", Message: "is required"}
	}

	s.mu.Lock()
	s.loading++
	s.touchLocked()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}()

	// Queued writes must land before the chat is read back.
	if err := s.writer.Flush(ctx); err != nil {
		return &StoreError{Op: "list messages", Err: err}
	}

	msgs, err := s.store.ListMessages(ctx, s.ownerID, chatID)
	if err != nil {
		s.logger.Warn("failed to load chat", "chat_id", chatID, "error", err)
		return &StoreError{Op: "list messages", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if chatID == s.chatID {
		// Re-selecting the current chat keeps its in-flight reply; the local view stays
		// authoritative until that turn completes.
		s.page = nil
		if !s.pending {
			s.messages = msgs
		}
		return nil
	}
	s.resetLocked()
	s.chatID = chatID
	s.messages = msgs
	return nil
}

// RefreshChats reloads the owner's chat list, most recently updated first.
func (s *Session) RefreshChats(ctx context.Context) error {
	if err := s.writer.Flush(ctx); err != nil {
		return &StoreError{Op: "list chats", Err: err}
	}
	chats, err := s.store.ListChats(ctx, s.ownerID)
	if err != nil {
		s.logger.Warn("failed to list chats", "error", err)
		return &StoreError{Op: "list chats", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	s.touchLocked()
	return nil
}

// DeleteChat removes a chat from the store and the local list. Deleting the current chat
// behaves like StartNewChat.
func (s *Session) DeleteChat(ctx context.Context, chatID string) error {
	if strings.TrimSpace(chatID) == "" {
		return &ValidationError{Field: "chat_id", Message: "is required"}
	}
	if err := s.writer.Flush(ctx); err != nil {
		return &StoreError{Op: "delete chat", Err: err}
	}
	if err := s.store.DeleteChat(ctx, s.ownerID, chatID); err != nil {
		s.logger.Warn("failed to delete chat", "chat_id", chatID, "error", err)
		return &StoreError{Op: "delete chat", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = slices.DeleteFunc(s.chats, func(c store.Chat) bool { return c.ID == chatID })
	if s.chatID == chatID {
		s.resetLocked()
	}
	s.touchLocked()
	return nil
}

func (s *Session) SelectModel(modelID string) error {
	if _, ok := FindModel(modelID); !ok {
		return &ValidationError{Field: "model_id", Message: "unknown model " + modelID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelID = modelID
	s.touchLocked()
	return nil
}

func (s *Session) UpdateSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.touchLocked()
	return nil
}

// SetPageContext attaches analysed page text to later generation requests in the current chat.
func (s *Session) SetPageContext(pc PageContext) error {
	if pc.empty() {
		return &ValidationError{Field: "page_context", Message: "content is empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = &pc
	s.touchLocked()
	return nil
}

func (s *Session) ClearPageContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = nil
	s.touchLocked()
}

// SendUserMessage runs one user turn: lazily creates the chat, appends the user message,
// asks the generator for a reply and appends it unless the session moved on meanwhile.
// Only one turn runs at a time; a concurrent call returns OutcomeIgnored.
func (s *Session) SendUserMessage(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" || s.ownerID <= 0 {
		return OutcomeIgnored, nil
	}
	if !s.gate.TryAcquire(1) {
		return OutcomeIgnored, nil
	}
	defer s.gate.Release(1)

	s.mu.Lock()
	s.pending = true
	s.touchLocked()
	epoch := s.epoch
	chatID := s.chatID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
	}()

	if chatID == "" {
		chat, err := s.store.CreateChat(ctx, s.ownerID, DefaultChatTitle)
		if err != nil {
			s.logger.Error("failed to create chat", "error", err)
			return OutcomeFailed, &StoreError{Op: "create chat", Err: err}
		}
		chatID = chat.ID

		s.mu.Lock()
		s.chats = append([]store.Chat{*chat}, s.chats...)
		if s.epoch != epoch {
			s.mu.Unlock()
			return OutcomeDiscarded, nil
		}
		s.chatID = chatID
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return OutcomeDiscarded, nil
	}
	first := len(s.messages) == 0
	s.messages = append(s.messages, store.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      store.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	})
	title := ""
	if first {
		title = ChatTitleFrom(text)
	}
	s.bumpChatLocked(chatID, title)

	req := GenerationRequest{
		Prompt:       text,
		ModelID:      s.modelID,
		Temperature:  s.settings.Temperature,
		MaxTokens:    s.settings.MaxTokens,
		SystemPrompt: s.settings.SystemPrompt,
		Stream:       s.settings.Stream,
	}
	if s.page != nil {
		pc := *s.page
		req.PageContext = &pc
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.cancelGen = cancel
	s.mu.Unlock()
	defer cancel()

	s.writer.submit("append user message", chatID, func(ctx context.Context) error {
		_, err := s.store.AppendMessage(ctx, s.ownerID, store.NewMessage{ChatID: chatID, Role: store.RoleUser, Content: text})
		return err
	})
	if first {
		s.writer.submit("rename chat", chatID, func(ctx context.Context) error {
			return s.store.RenameChat(ctx, s.ownerID, chatID, title)
		})
	}

	log := s.logger.With("chat_id", chatID, "model_id", req.ModelID)
	started := time.Now()
	reply, err := s.generator.Generate(genCtx, req)

	s.mu.Lock()
	if s.epoch != epoch || s.chatID != chatID {
		s.mu.Unlock()
		log.Info("discarding stale reply", "elapsed", time.Since(started))
		return OutcomeDiscarded, nil
	}
	s.cancelGen = nil

	if err != nil {
		s.mu.Unlock()
		log.Warn("generation failed", "error", err)
		return OutcomeFailed, &GenerationError{ModelID: req.ModelID, Err: err}
	}

	modelName := ModelDisplayName(req.ModelID)
	s.messages = append(s.messages, store.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      store.RoleAssistant,
		Content:   reply,
		Model:     &modelName,
		CreatedAt: s.now(),
	})
	s.bumpChatLocked(chatID, "")
	s.mu.Unlock()

	s.writer.submit("append assistant message", chatID, func(ctx context.Context) error {
		_, err := s.store.AppendMessage(ctx, s.ownerID, store.NewMessage{ChatID: chatID, Role: store.RoleAssistant, Content: reply, Model: &modelName})
		return err
	})
	log.Debug("reply appended", "elapsed", time.Since(started))
	return OutcomeReplied, nil
}

// bumpChatLocked moves a chat to the top of the local list, retitling it when title is set.
func (s *Session) bumpChatLocked(chatID, title string) {
	i := slices.IndexFunc(s.chats, func(c store.Chat) bool { return c.ID == chatID })
	if i < 0 {
		return
	}
	c := s.chats[i]
	c.UpdatedAt = s.now()
	if title != "" {
		c.Title = title
	}
	s.chats = slices.Delete(s.chats, i, i+1)
	s.chats = append([]store.Chat{c}, s.chats...)
}

// Flush waits for queued writes to reach the store.
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Close abandons any in-flight reply and drains queued writes.
func (s *Session) Close() {
	s.mu.Lock()
	s.epoch++
	if s.cancelGen != nil {
		s.cancelGen()
		s.cancelGen = nil
	}
	s.mu.Unlock()
	s.writer.Close()
}
