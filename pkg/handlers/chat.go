package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/models"
	"github.com/dbscribe/dbscribe/pkg/services"
	sqlguard "github.com/dbscribe/dbscribe/pkg/sql"
)

// ChatRequest carries one stateless question about a target database.
type ChatRequest struct {
	ConnectionString string `json:"connection_string"`
	Question         string `json:"question"`
	Mode             string `json:"mode"`
}

// ChatResponse returns the answer and, in SQL mode, the executed statement.
type ChatResponse struct {
	Answer       string `json:"answer"`
	GeneratedSQL string `json:"generated_sql,omitempty"`
}

// ChatHandler answers questions via the dispatcher.
type ChatHandler struct {
	manager    *datasource.Manager
	dispatcher *services.ChatDispatcher
	logger     *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(manager *datasource.Manager, dispatcher *services.ChatDispatcher, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{manager: manager, dispatcher: dispatcher, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
}

// Chat handles POST /api/chat requests.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ConnectionString == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection_string is required")
		return
	}
	if req.Question == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	mode := models.ChatMode(req.Mode)
	if !mode.Valid() {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", `mode must be "summary" or "sql"`)
		return
	}

	// Screen the raw question before it reaches any prompt. Questions that
	// carry injection payloads get rejected up front rather than corrected.
	if check := sqlguard.CheckQuestion(req.Question); check != nil {
		h.logger.Warn("question rejected by injection screen",
			zap.String("fingerprint_pattern", check.Fingerprint))
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_question", "the question looks like a SQL injection attempt")
		return
	}

	conn, fingerprint, err := h.manager.GetOrConnect(r.Context(), req.ConnectionString)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	turn, err := h.dispatcher.Ask(r.Context(), conn, fingerprint, req.Question, mode)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ChatResponse{
		Answer:       turn.Answer,
		GeneratedSQL: turn.GeneratedSQL,
	})
}
