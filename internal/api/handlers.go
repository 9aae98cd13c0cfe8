package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gwi.com/chat-agent/internal/auth"
	"gwi.com/chat-agent/internal/core"
	"gwi.com/chat-agent/internal/observability"
	"gwi.com/chat-agent/internal/store"
)

type APIHandler struct {
	chatService *core.ChatService
}

func NewAPIHandler(cs *core.ChatService) *APIHandler {
	return &APIHandler{chatService: cs}
}

type errorResponse struct {
	Error string      `json:"error"`
	State *core.State `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps the core error taxonomy onto HTTP.
func statusFor(err error) int {
	var verr *core.ValidationError
	var gerr *core.GenerationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUserExists):
		return http.StatusConflict
	case errors.As(err, &gerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error, state *core.State) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), State: state})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// session resolves {sessionID} for the authenticated user, writing the error response itself.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		h.respondError(w, r, core.ErrAuthRequired, nil)
		return nil, false
	}
	sess, err := h.chatService.Session(chi.URLParam(r, "sessionID"), userID)
	if err != nil {
		h.respondError(w, r, err, nil)
		return nil, false
	}
	return sess, true
}

type credentialsRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "User ID and password are required")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("failed to hash password", "user", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user, err := h.chatService.CreateUser(r.Context(), req.UserID, hashedPassword)
	if err != nil {
		h.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "User ID and password are required")
		return
	}

	user, err := h.chatService.GetUserByExternalID(r.Context(), req.UserID)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("failed to load user", "user", req.UserID, "error", err)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateJWT(req.UserID)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("failed to generate token", "user", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chatService.Models())
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		h.respondError(w, r, core.ErrAuthRequired, nil)
		return
	}
	sess, err := h.chatService.StartSession(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, sess.State())
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.chatService.EndSession(sess.ID(), sess.OwnerID()); err != nil {
		h.respondError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.RefreshChats(r.Context()); err != nil {
		state := sess.State()
		h.respondError(w, r, err, &state)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (h *APIHandler) SelectChatHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.SelectChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		state := sess.State()
		h.respondError(w, r, err, &state)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		state := sess.State()
		h.respondError(w, r, err, &state)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (h *APIHandler) NewChatHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.StartNewChat()
	writeJSON(w, http.StatusOK, sess.State())
}

func (h *APIHandler) ClearChatHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.ClearCurrentChat()
	writeJSON(w, http.StatusOK, sess.State())
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	Outcome core.Outcome `json:"outcome"`
	State   core.State   `json:"state"`
}

// PostMessageHandler runs one turn synchronously. A failed reply still returns the state, which
// keeps the user's message.
func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req postMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := sess.SendUserMessage(r.Context(), req.Content)
	if err != nil {
		state := sess.State()
		h.respondError(w, r, err, &state)
		return
	}
	writeJSON(w, http.StatusOK, postMessageResponse{Outcome: outcome, State: sess.State()})
}

type selectModelRequest struct {
	ModelID string `json:"model_id"`
}

func (h *APIHandler) SelectModelHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectModelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.SelectModel(req.ModelID); err != nil {
		h.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

// settingsPatch leaves omitted fields at their current values.
type settingsPatch struct {
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"max_tokens"`
	SystemPrompt *string  `json:"system_prompt"`
	Stream       *bool    `json:"stream"`
}

func (h *APIHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var patch settingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	settings := sess.State().Settings
	if patch.Temperature != nil {
		settings.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		settings.MaxTokens = *patch.MaxTokens
	}
	if patch.SystemPrompt != nil {
		settings.SystemPrompt = *patch.SystemPrompt
	}
	if patch.Stream != nil {
		settings.Stream = *patch.Stream
	}

	if err := sess.UpdateSettings(settings); err != nil {
		h.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

type analyzePageRequest struct {
	URL string `json:"url"`
}

func (h *APIHandler) AnalyzePageHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req analyzePageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.chatService.AnalyzePage(r.Context(), sess, req.URL); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			h.respondError(w, r, err, nil)
			return
		}
		observability.LoggerFromContext(r.Context()).Warn("page analysis failed", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (h *APIHandler) ClearPageContextHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.ClearPageContext()
	writeJSON(w, http.StatusOK, sess.State())
}
