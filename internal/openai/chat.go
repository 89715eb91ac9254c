package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"brd-generator/internal/models"
)

type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_completion_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatStreamChunk is one "data:" event of a streamed completion.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) chatRequest(req models.CompletionRequest, stream bool) ChatRequest {
	messages := make([]Message, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	for _, turn := range req.Turns {
		messages = append(messages, Message{Role: string(turn.Role), Content: turn.Content})
	}

	return ChatRequest{
		Model:     c.ChatModel,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
}

// Complete returns the whole completion in one response.
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := c.postJSON(ctx, "/chat/completions", c.chatRequest(req, false))
	if err != nil {
		return "", generationError(err)
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", generationError(fmt.Errorf("failed to decode response: %w", err))
	}

	if len(chatResp.Choices) == 0 {
		return "", generationError(fmt.Errorf("no completion returned"))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// CompleteStream streams the completion and calls onFragment for every
// non-empty content delta, in order. If onFragment returns an error the stream
// is abandoned and that error is returned unchanged, so callers can tell a
// client disconnect from a provider failure.
func (c *Client) CompleteStream(ctx context.Context, req models.CompletionRequest, onFragment func(string) error) error {
	resp, err := c.postJSON(ctx, "/chat/completions", c.chatRequest(req, true))
	if err != nil {
		return generationError(err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return generationError(fmt.Errorf("failed to decode stream chunk: %w", err))
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onFragment(choice.Delta.Content); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return generationError(fmt.Errorf("failed to read stream: %w", err))
	}

	// Some compatible servers close the stream without [DONE].
	return nil
}

func generationError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.GenerationError{Provider: "openai", Err: err}
}
