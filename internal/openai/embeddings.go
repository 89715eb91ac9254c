package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brd-generator/internal/models"
)

type EmbeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// EmbedBatch embeds all texts in one request. The response items are placed by
// their "index" field, not by arrival order, so result i always belongs to
// texts[i]. Any failure is an *models.EmbeddingServiceError.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := EmbeddingRequest{
		Input:          texts,
		Model:          c.EmbeddingModel,
		Dimensions:     c.Dimensions,
		EncodingFormat: "float",
	}

	resp, err := c.postJSON(ctx, "/embeddings", req)
	if err != nil {
		return nil, embeddingError(err)
	}
	defer resp.Body.Close()

	var embResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, embeddingError(fmt.Errorf("failed to decode response: %w", err))
	}

	if len(embResp.Data) != len(texts) {
		return nil, embeddingError(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range embResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, embeddingError(fmt.Errorf("embedding index %d out of range", item.Index))
		}
		if vectors[item.Index] != nil {
			return nil, embeddingError(fmt.Errorf("duplicate embedding index %d", item.Index))
		}
		if c.Dimensions > 0 && len(item.Embedding) != c.Dimensions {
			return nil, embeddingError(fmt.Errorf("embedding %d has %d dimensions, want %d", item.Index, len(item.Embedding), c.Dimensions))
		}
		vectors[item.Index] = item.Embedding
	}

	return vectors, nil
}

// Embed embeds a single text through the batch path.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func embeddingError(err error) error {
	e := &models.EmbeddingServiceError{Err: err}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		e.StatusCode = apiErr.StatusCode
	}
	return e
}
