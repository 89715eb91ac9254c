package api

import (
	"io"
	"log"
	"net/http"

	"brd-generator/internal/models"
	"brd-generator/internal/services"

	"github.com/gorilla/mux"
)

// ConversationHeader carries the conversation id of a streamed answer.
const ConversationHeader = "X-Conversation-Id"

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Chat streams the answer as plain text.
// Learning: once the first fragment is written the status line is gone, so
// errors after that point can only end the stream. Everything that can fail
// with a proper status happens in StartTurn, before any byte is written.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	turn, err := h.chat.StartTurn(r.Context(), services.ChatRequest{
		UserID:         caller(r),
		ProjectID:      mux.Vars(r)["id"],
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(ConversationHeader, turn.ConversationID)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_ = rc.Flush()

	err = turn.Stream(r.Context(), func(fragment string) error {
		if _, err := io.WriteString(w, fragment); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil {
		log.Printf("⚠️  Chat stream for conversation %s: %v", turn.ConversationID, err)
	}
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chat.ListConversations(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": convs,
		"count":         len(convs),
	})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.ListMessages(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}
