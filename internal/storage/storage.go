package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"time"

	"brd-generator/internal/config"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Get when nothing is stored at the path.
var ErrObjectNotFound = errors.New("object not found")

// Storage holds the original bytes of uploaded files.
type Storage interface {
	Put(ctx context.Context, path string, data io.Reader) error

	// Get returns the stored bytes; the caller closes the reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}

// New selects the backend named by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath)
	case "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// BuildPath returns "<userID>/<unix millis>_<sanitized filename>". The
// timestamp keeps re-uploads of the same file from colliding.
func BuildPath(userID uuid.UUID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", userID, now.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename drops any directory part and replaces every character
// outside [A-Za-z0-9._-] with an underscore.
func SanitizeFilename(filename string) string {
	name := unsafeChars.ReplaceAllString(filepath.Base(filepath.ToSlash(filename)), "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// contentType is sent with S3 uploads so downloads open in the right app.
func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
