package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"brd-generator/internal/models"

	"gorm.io/datatypes"
)

// FragmentWriter delivers one piece of a streamed answer to the client. An
// error stops the stream.
type FragmentWriter func(fragment string) error

/*
LEARNING: ACCUMULATE, THEN FORWARD

The sink sits between the generator and the client. Every fragment is added
to the buffer BEFORE it is forwarded, so whatever the client may have seen is
also what gets persisted.

Flush runs exactly once (sync.Once), whichever way the stream ends:
  - completed      → full answer saved
  - provider error → partial answer saved
  - client gone    → partial answer saved

The save uses context.WithoutCancel: the request context is usually the thing
that was just cancelled, and the assistant message must still be written.
*/

// StreamSink collects a streamed assistant answer and persists it once.
type StreamSink struct {
	conversations  ConversationRepository
	conversationID string
	sources        []models.Source
	forward        FragmentWriter

	mu    sync.Mutex
	buf   strings.Builder
	once  sync.Once
	saved *models.Message
	err   error
}

func NewStreamSink(conversations ConversationRepository, conversationID string, sources []models.Source, forward FragmentWriter) *StreamSink {
	return &StreamSink{
		conversations:  conversations,
		conversationID: conversationID,
		sources:        sources,
		forward:        forward,
	}
}

// Write accumulates fragment and forwards it.
func (s *StreamSink) Write(fragment string) error {
	s.mu.Lock()
	s.buf.WriteString(fragment)
	s.mu.Unlock()

	if s.forward == nil {
		return nil
	}
	return s.forward(fragment)
}

// Content is the answer accumulated so far.
func (s *StreamSink) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Flush saves the accumulated answer as the assistant message. Only the first
// call writes; later calls return the first result. An empty answer saves
// nothing and returns (nil, nil).
func (s *StreamSink) Flush(ctx context.Context) (*models.Message, error) {
	s.once.Do(func() {
		content := s.Content()
		if content == "" {
			return
		}

		msg := &models.Message{
			ConversationID: s.conversationID,
			Role:           models.RoleAssistant,
			Content:        content,
			Sources:        datatypes.NewJSONType(s.sources),
		}
		if err := s.conversations.AddMessage(context.WithoutCancel(ctx), msg); err != nil {
			s.err = fmt.Errorf("failed to save assistant message: %w", err)
			return
		}
		s.saved = msg
	})
	return s.saved, s.err
}
