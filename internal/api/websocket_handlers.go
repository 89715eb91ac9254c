package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"brd-generator/internal/middleware"
	"brd-generator/internal/models"
	"brd-generator/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

/*
LEARNING: WEBSOCKET UPGRADER

The upgrader converts HTTP connections to WebSocket connections.

Key settings:
- ReadBufferSize/WriteBufferSize: Memory for I/O operations
- CheckOrigin: CORS validation for WebSocket connections

One connection carries a whole chat session. The read loop handles one
question at a time, so all writes happen on the reading goroutine and the
connection never has two concurrent writers (gorilla/websocket allows at most
one).
*/

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// the caller id is checked by RequireCaller before the upgrade
		return true
	},
}

const (
	wsMaxMessageBytes = 64 << 10
	wsWriteWait       = 10 * time.Second
)

// Frame types sent to the client.
const (
	frameDelta = "delta"
	frameDone  = "done"
	frameError = "error"
)

// wsFrame is one server-to-client message.
type wsFrame struct {
	Type           string          `json:"type"`
	Content        string          `json:"content,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Sources        []models.Source `json:"sources,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// ChatWebSocket streams answers as JSON frames: any number of "delta" frames,
// then "done" (with the conversation id and sources) or "error".
func (h *Handler) ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := caller(r)
	projectID := mux.Vars(r)["id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Printf("⚠️  WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageBytes)

	// keeps the request's trace and request id; the socket owns cancellation
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	log.Printf("✓ Chat WebSocket connected (project %s)", projectID)

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️  Chat WebSocket read error: %v", err)
			}
			return
		}

		if err := h.answerOverSocket(ctx, conn, userID, projectID, req); err != nil {
			log.Printf("⚠️  Chat WebSocket write error: %v", err)
			return
		}
	}
}

// answerOverSocket handles one question. Service failures become error frames;
// the returned error is a broken connection.
func (h *Handler) answerOverSocket(ctx context.Context, conn *websocket.Conn, userID uuid.UUID, projectID string, req chatRequest) error {
	ctx, span := middleware.StartSpan(ctx, "WebSocket.Chat",
		attribute.String("project.id", projectID),
		attribute.String("conversation.id", req.ConversationID),
	)
	defer span.End()

	send := func(f wsFrame) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(f)
	}

	turn, err := h.chat.StartTurn(ctx, services.ChatRequest{
		UserID:         userID,
		ProjectID:      projectID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return send(wsFrame{Type: frameError, Error: err.Error()})
	}

	var writeErr error
	streamErr := turn.Stream(ctx, func(fragment string) error {
		writeErr = send(wsFrame{Type: frameDelta, Content: fragment})
		return writeErr
	})
	if writeErr != nil {
		return writeErr
	}
	if streamErr != nil {
		return send(wsFrame{Type: frameError, ConversationID: turn.ConversationID, Error: streamErr.Error()})
	}

	return send(wsFrame{Type: frameDone, ConversationID: turn.ConversationID, Sources: turn.Sources})
}
