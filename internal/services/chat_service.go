package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"brd-generator/internal/middleware"
	"brd-generator/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const titleRunes = 50

// ChatRequest is one user message. An empty ConversationID starts a new
// conversation.
type ChatRequest struct {
	UserID         uuid.UUID
	ProjectID      string
	ConversationID string
	Message        string
}

// ChatService runs conversational RAG over a project's knowledge base.
type ChatService struct {
	projects      ProjectRepository
	conversations ConversationRepository
	rag           *RAGService
	generator     Generator
}

func NewChatService(projects ProjectRepository, conversations ConversationRepository, rag *RAGService, generator Generator) *ChatService {
	return &ChatService{
		projects:      projects,
		conversations: conversations,
		rag:           rag,
		generator:     generator,
	}
}

// ChatTurn is a prepared answer: the user message is saved, the context is
// retrieved and the prompt is built. Stream produces the answer.
type ChatTurn struct {
	ConversationID string
	Sources        []models.Source

	conversations ConversationRepository
	generator     Generator
	request       models.CompletionRequest
}

// StartTurn does everything that must happen before the first byte of the
// answer. Errors here are reported as ordinary request failures.
func (s *ChatService) StartTurn(ctx context.Context, req ChatRequest) (*ChatTurn, error) {
	ctx, span := middleware.StartSpan(ctx, "Chat.StartTurn",
		attribute.String("project.id", req.ProjectID),
		attribute.String("conversation.id", req.ConversationID),
	)
	defer span.End()

	if req.ProjectID == "" {
		return nil, ErrProjectRequired
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrMessageRequired
	}
	if _, err := s.projects.GetByID(ctx, req.UserID, req.ProjectID); err != nil {
		return nil, err
	}

	conv, err := s.conversation(ctx, req)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	userMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        req.Message,
	}
	if err := s.conversations.AddMessage(ctx, userMsg); err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// Learning: a failed retrieval degrades the answer, it does not fail the
	// turn. The model is told there is no context and says so.
	contextText, sources := NoContextMessage, []models.Source{}
	rc, err := s.rag.RetrieveContext(ctx, req.Message, req.ProjectID)
	if err != nil {
		log.Printf("⚠️  Context retrieval failed for conversation %s: %v", conv.ID, err)
		middleware.AddSpanEvent(ctx, "retrieval_degraded", attribute.String("error", err.Error()))
	} else {
		contextText, sources = rc.Context, rc.Sources
	}

	history, err := s.conversations.ListMessages(ctx, conv.ID)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	turns := make([]models.ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, models.ChatTurn{Role: m.Role, Content: m.Content})
	}

	return &ChatTurn{
		ConversationID: conv.ID,
		Sources:        sources,
		conversations:  s.conversations,
		generator:      s.generator,
		request: models.CompletionRequest{
			System:    SystemPrompt(contextText),
			Turns:     turns,
			MaxTokens: answerMaxTokens,
		},
	}, nil
}

func (s *ChatService) conversation(ctx context.Context, req ChatRequest) (*models.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.conversations.GetByID(ctx, req.UserID, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv.ProjectID != req.ProjectID {
			return nil, models.ErrNotFound
		}
		return conv, nil
	}

	conv := &models.Conversation{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Title:     ConversationTitle(req.Message),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// Stream generates the answer, forwarding fragments to w. The answer produced
// so far is saved however the stream ends. The returned error is the
// generation or delivery failure, if any.
func (t *ChatTurn) Stream(ctx context.Context, w FragmentWriter) error {
	ctx, span := middleware.StartSpan(ctx, "Chat.Stream", attribute.String("conversation.id", t.ConversationID))
	defer span.End()

	sink := NewStreamSink(t.conversations, t.ConversationID, t.Sources, w)
	streamErr := t.generator.CompleteStream(ctx, t.request, sink.Write)

	msg, flushErr := sink.Flush(ctx)
	if flushErr != nil {
		middleware.AddSpanError(ctx, flushErr)
		log.Printf("❌ %v (conversation %s)", flushErr, t.ConversationID)
	}

	if streamErr != nil {
		middleware.AddSpanError(ctx, streamErr)
		log.Printf("⚠️  Chat stream for conversation %s ended early: %v", t.ConversationID, streamErr)
		return streamErr
	}
	if msg != nil {
		middleware.AddSpanEvent(ctx, "answer_saved", attribute.Int("answer_length", len(msg.Content)))
	}
	return flushErr
}

// Request exposes the prompt that Stream sends.
func (t *ChatTurn) Request() models.CompletionRequest {
	return t.request
}

func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Conversation, error) {
	if _, err := s.projects.GetByID(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.conversations.ListByProject(ctx, userID, projectID)
}

// ListMessages returns a conversation's messages oldest first.
func (s *ChatService) ListMessages(ctx context.Context, userID uuid.UUID, conversationID string) ([]*models.Message, error) {
	if _, err := s.conversations.GetByID(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, conversationID)
}

// ConversationTitle is the first 50 characters of the opening message.
func ConversationTitle(message string) string {
	if utf8.RuneCountInString(message) <= titleRunes {
		return message
	}
	runes := []rune(message)
	return string(runes[:titleRunes])
}
