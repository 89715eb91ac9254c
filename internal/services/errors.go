package services

import "errors"

// Validation errors: rejected before any side effect.
var (
	ErrProjectRequired  = errors.New("project id is required")
	ErrNameRequired     = errors.New("project name is required")
	ErrFilenameRequired = errors.New("filename is required")
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file exceeds the upload size limit")
	ErrMessageRequired  = errors.New("message is required")
	ErrQueryRequired    = errors.New("query is required")
	ErrContentRequired  = errors.New("markdown content is required")
)

// ErrAlreadyProcessed rejects a process request for a document that already
// has its chunks.
var ErrAlreadyProcessed = errors.New("document is already processed")

// ErrNoDocuments is the BRD precondition failure.
var ErrNoDocuments = errors.New("no processed documents found: upload and process documents before generating a BRD")

// ErrCorpusBudget means processed documents exist but the corpus budget is
// too small to hold even one sampled document.
var ErrCorpusBudget = errors.New("corpus budget is too small to include any document")

// IsValidation reports whether err is a caller mistake.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrProjectRequired, ErrNameRequired, ErrFilenameRequired, ErrEmptyFile,
		ErrFileTooLarge, ErrMessageRequired, ErrQueryRequired, ErrContentRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
