package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"brd-generator/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTurn(t *testing.T, env *testEnv, conversationID, message string) *ChatTurn {
	t.Helper()
	turn, err := env.chat.StartTurn(context.Background(), ChatRequest{
		UserID: env.user, ProjectID: env.project.ID, ConversationID: conversationID, Message: message,
	})
	require.NoError(t, err)
	return turn
}

func TestStartTurn_NewConversation(t *testing.T) {
	env := newTestEnv(t)
	env.seedProcessed(t, env.project.ID, "budget.txt", "the budget is 40k")
	message := "What is the budget we agreed on for the first phase of the rollout?"

	turn := startTurn(t, env, "", message)

	conv := env.convs.convs[turn.ConversationID]
	require.NotNil(t, conv)
	assert.Equal(t, message[:50], conv.Title)
	assert.Equal(t, env.project.ID, conv.ProjectID)

	msgs := env.convs.messages[turn.ConversationID]
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleUser, msgs[0].Role)

	req := turn.Request()
	assert.Equal(t, []models.ChatTurn{{Role: models.RoleUser, Content: message}}, req.Turns)
	assert.Contains(t, req.System, "[From: budget.txt]")
	assert.Equal(t, 4096, req.MaxTokens)
	require.Len(t, turn.Sources, 1)
}

func TestStartTurn_ContinuesConversation(t *testing.T) {
	env := newTestEnv(t)
	env.gen.fragments = []string{"First answer."}

	first := startTurn(t, env, "", "hello")
	require.NoError(t, first.Stream(context.Background(), nil))

	second := startTurn(t, env, first.ConversationID, "and then?")
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, []models.ChatTurn{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "First answer."},
		{Role: models.RoleUser, Content: "and then?"},
	}, second.Request().Turns)
}

func TestStartTurn_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other, err := env.projects.Create(ctx, env.user, &models.ProjectCreate{Name: "Other"})
	require.NoError(t, err)
	foreign := startTurn(t, env, "", "hi")

	tests := []struct {
		name    string
		req     ChatRequest
		wantErr error
	}{
		{"empty message", ChatRequest{UserID: env.user, ProjectID: env.project.ID, Message: "  "}, ErrMessageRequired},
		{"missing project", ChatRequest{UserID: env.user, Message: "hi"}, ErrProjectRequired},
		{"other user", ChatRequest{UserID: uuid.New(), ProjectID: env.project.ID, Message: "hi"}, models.ErrNotFound},
		{"conversation of another project", ChatRequest{UserID: env.user, ProjectID: other.ID, ConversationID: foreign.ConversationID, Message: "hi"}, models.ErrNotFound},
		{"unknown conversation", ChatRequest{UserID: env.user, ProjectID: env.project.ID, ConversationID: "nope", Message: "hi"}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.chat.StartTurn(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStartTurn_RetrievalFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.seedProcessed(t, env.project.ID, "budget.txt", "the budget is 40k")
	env.embedder.err = &models.EmbeddingServiceError{StatusCode: 500, Err: errProvider}

	turn := startTurn(t, env, "", "budget?")

	assert.Empty(t, turn.Sources)
	assert.Equal(t, SystemPrompt(NoContextMessage), turn.Request().System)
}

func TestStream_SavesAnswerWithSources(t *testing.T) {
	env := newTestEnv(t)
	env.seedProcessed(t, env.project.ID, "login.txt", "login uses SSO")
	env.gen.fragments = []string{"Login ", "uses ", "SSO."}

	turn := startTurn(t, env, "", "how does login work")

	var delivered strings.Builder
	err := turn.Stream(context.Background(), func(f string) error {
		delivered.WriteString(f)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Login uses SSO.", delivered.String())
	msgs := env.convs.messages[turn.ConversationID]
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Login uses SSO.", msgs[1].Content)
	assert.Equal(t, turn.Sources, msgs[1].Sources.Data())
}

func TestStream_ClientDisconnectSavesPartialAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.gen.fragments = []string{"one ", "two ", "three"}
	turn := startTurn(t, env, "", "count")

	ctx, cancel := context.WithCancel(context.Background())
	errGone := errors.New("broken pipe")
	err := turn.Stream(ctx, func(f string) error {
		if f == "two " {
			cancel()
			return errGone
		}
		return nil
	})

	assert.ErrorIs(t, err, errGone)
	msgs := env.convs.messages[turn.ConversationID]
	require.Len(t, msgs, 2, "saved despite the cancelled request context")
	assert.Equal(t, "one two ", msgs[1].Content)
}

func TestStream_GenerationErrorSavesPartialAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.gen.fragments = []string{"partial"}
	env.gen.err = &models.GenerationError{Provider: "openai", Err: errProvider}
	turn := startTurn(t, env, "", "go")

	err := turn.Stream(context.Background(), nil)

	var genErr *models.GenerationError
	assert.ErrorAs(t, err, &genErr)
	msgs := env.convs.messages[turn.ConversationID]
	require.Len(t, msgs, 2)
	assert.Equal(t, "partial", msgs[1].Content)
}

func TestStream_NothingGeneratedSavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = &models.GenerationError{Provider: "openai", Err: errProvider}
	turn := startTurn(t, env, "", "go")

	require.Error(t, turn.Stream(context.Background(), nil))
	assert.Len(t, env.convs.messages[turn.ConversationID], 1)
}

func TestStreamSink_FlushesOnce(t *testing.T) {
	convs := newFakeConversations()
	sink := NewStreamSink(convs, "conv-x", []models.Source{{DocumentID: "d"}}, nil)

	require.NoError(t, sink.Write("a"))
	require.NoError(t, sink.Write("b"))

	first, err := sink.Flush(context.Background())
	require.NoError(t, err)
	second, err := sink.Flush(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, convs.messages["conv-x"], 1)
	assert.Equal(t, "ab", first.Content)
}

func TestStreamSink_AccumulatesBeforeForwarding(t *testing.T) {
	convs := newFakeConversations()
	sink := NewStreamSink(convs, "conv-x", nil, func(string) error { return errors.New("closed") })

	assert.Error(t, sink.Write("seen"))
	assert.Equal(t, "seen", sink.Content())
}

func TestStreamSink_SaveFailure(t *testing.T) {
	convs := newFakeConversations()
	convs.addErr = errors.New("db down")
	sink := NewStreamSink(convs, "conv-x", nil, nil)
	require.NoError(t, sink.Write("x"))

	msg, err := sink.Flush(context.Background())
	assert.Nil(t, msg)
	assert.ErrorContains(t, err, "db down")
}

func TestConversationTitle(t *testing.T) {
	assert.Equal(t, "short", ConversationTitle("short"))
	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50), ConversationTitle(long))
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)
	env.gen.fragments = []string{"hi"}
	turn := startTurn(t, env, "", "hello")
	require.NoError(t, turn.Stream(context.Background(), nil))

	msgs, err := env.chat.ListMessages(context.Background(), env.user, turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	_, err = env.chat.ListMessages(context.Background(), uuid.New(), turn.ConversationID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	convs, err := env.chat.ListConversations(context.Background(), env.user, env.project.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}
