package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brd-generator/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

var errNoUserTurn = errors.New("conversation must end with a user turn")

// Client generates completions with Google's Gemini models. It satisfies the
// same generation contract as the OpenAI client so the two are swappable.
type Client struct {
	client    *genai.Client
	modelName string
}

func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client, modelName: modelName}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) model(req models.CompletionRequest) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	return model
}

func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	history, last, err := splitTurns(req.Turns)
	if err != nil {
		return "", generationError(err)
	}

	cs := c.model(req).StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		return "", generationError(err)
	}

	return responseText(resp), nil
}

// CompleteStream calls onFragment with every non-empty text part as it
// arrives. An onFragment error stops the stream and is returned unchanged.
func (c *Client) CompleteStream(ctx context.Context, req models.CompletionRequest, onFragment func(string) error) error {
	history, last, err := splitTurns(req.Turns)
	if err != nil {
		return generationError(err)
	}

	cs := c.model(req).StartChat()
	cs.History = history

	iter := cs.SendMessageStream(ctx, last)
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return generationError(err)
		}

		if text := responseText(resp); text != "" {
			if err := onFragment(text); err != nil {
				return err
			}
		}
	}
}

// splitTurns maps the conversation onto Gemini's chat shape: every turn but the
// last becomes history and the last, which must come from the user, is sent.
// Gemini requires alternating roles, so consecutive turns of one role (a user
// turn whose answer was never saved, say) are joined with a blank line.
func splitTurns(turns []models.ChatTurn) ([]*genai.Content, genai.Text, error) {
	if len(turns) == 0 || turns[len(turns)-1].Role != models.RoleUser {
		return nil, "", errNoUserTurn
	}

	type merged struct {
		role    string
		content string
	}
	var runs []merged
	for _, turn := range turns {
		role := roleFor(turn.Role)
		if n := len(runs); n > 0 && runs[n-1].role == role {
			runs[n-1].content += "\n\n" + turn.Content
			continue
		}
		runs = append(runs, merged{role: role, content: turn.Content})
	}

	history := make([]*genai.Content, 0, len(runs)-1)
	for _, run := range runs[:len(runs)-1] {
		history = append(history, &genai.Content{
			Role:  run.role,
			Parts: []genai.Part{genai.Text(run.content)},
		})
	}

	return history, genai.Text(runs[len(runs)-1].content), nil
}

// Gemini calls the assistant side "model".
func roleFor(r models.Role) string {
	if r == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// only the first candidate is used
		break
	}
	return sb.String()
}

func generationError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.GenerationError{Provider: "gemini", Err: err}
}
