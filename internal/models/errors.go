package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist or is not
// visible to the caller. Ownership misses are reported the same way so that
// callers cannot discover other users' ids.
var ErrNotFound = errors.New("not found")

// Service errors come from external collaborators (embedding, transcription,
// generation). They are never retried internally; a user-initiated reprocess
// or a new request is the retry.

type EmbeddingServiceError struct {
	StatusCode int
	Err        error
}

func (e *EmbeddingServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding service error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("embedding service error: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

type TranscriptionError struct {
	Filename string
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("failed to transcribe %s: %v", e.Filename, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsServiceError reports whether err came from an external AI service.
func IsServiceError(err error) bool {
	var (
		embErr *EmbeddingServiceError
		trErr  *TranscriptionError
		genErr *GenerationError
	)
	return errors.As(err, &embErr) || errors.As(err, &trErr) || errors.As(err, &genErr)
}
