package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"brd-generator/internal/models"
)

type TranscriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the speech-to-text endpoint and returns the
// transcript. The filename extension tells the API the audio container.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", transcriptionError(filename, fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return "", transcriptionError(filename, fmt.Errorf("failed to write audio: %w", err))
	}

	fields := map[string]string{
		"model":           c.TranscribeModel,
		"language":        "en",
		"response_format": "json",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", transcriptionError(filename, fmt.Errorf("failed to write field %s: %w", k, err))
		}
	}
	if err := writer.Close(); err != nil {
		return "", transcriptionError(filename, fmt.Errorf("failed to close multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", transcriptionError(filename, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", transcriptionError(filename, err)
	}
	defer resp.Body.Close()

	var trResp TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&trResp); err != nil {
		return "", transcriptionError(filename, fmt.Errorf("failed to decode response: %w", err))
	}

	return trResp.Text, nil
}

func transcriptionError(filename string, err error) error {
	return &models.TranscriptionError{Filename: filename, Err: err}
}
