package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brd-generator/internal/models"
)

// ErrEmptyContent means the file parsed fine but holds no usable text.
var ErrEmptyContent = errors.New("no text content could be extracted")

// ExtractionError is a corrupt, unreadable or empty input. It is recorded on
// the document and is not a service failure.
type ExtractionError struct {
	FileType models.FileType
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s file %q: %v", e.FileType, e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Transcriber turns audio into text. The OpenAI client implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type extractFunc func(ctx context.Context, data []byte, filename string) (string, error)

// Extractor converts raw file bytes into plain text.
/*
LEARNING: Dispatch table instead of a switch
The set of formats is closed (models.FileType), so each variant gets exactly
one function in a map built at construction time. Adding a format means adding
a FileType constant and one entry here, and a missing entry fails loudly as
ErrUnsupportedFileType instead of falling through a default branch.
*/
type Extractor struct {
	handlers map[models.FileType]extractFunc
}

func New(transcriber Transcriber) *Extractor {
	e := &Extractor{}
	e.handlers = map[models.FileType]extractFunc{
		models.FileTypeText: extractText,
		models.FileTypePDF:  extractPDF,
		models.FileTypeDOCX: extractDOCX,
		models.FileTypeCSV:  extractCSV,
		models.FileTypeXLSX: extractXLSX,
	}
	if transcriber != nil {
		e.handlers[models.FileTypeAudio] = func(ctx context.Context, data []byte, filename string) (string, error) {
			return transcriber.Transcribe(ctx, data, filename)
		}
	}
	return e
}

// Extract returns the text of data interpreted as fileType.
// Transcription failures come back as *models.TranscriptionError, untouched,
// so callers can tell a service outage from a bad file.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileType models.FileType, filename string) (string, error) {
	handler, ok := e.handlers[fileType]
	if !ok {
		return "", &ExtractionError{FileType: fileType, Filename: filename, Err: models.ErrUnsupportedFileType}
	}

	text, err := handler(ctx, data, filename)
	if err != nil {
		if models.IsServiceError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &ExtractionError{FileType: fileType, Filename: filename, Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{FileType: fileType, Filename: filename, Err: ErrEmptyContent}
	}

	return text, nil
}

func extractText(_ context.Context, data []byte, _ string) (string, error) {
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
