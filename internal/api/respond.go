package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"brd-generator/internal/extractor"
	"brd-generator/internal/middleware"
	"brd-generator/internal/models"
	"brd-generator/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("⚠️  Failed to encode response: %v", err)
	}
}

// statusFor maps an error class to its HTTP status.
// Learning: errors.Is/As walk the %w chain, so services can wrap freely and
// the mapping still sees the sentinel or typed error underneath.
func statusFor(err error) int {
	var (
		extErr   *extractor.ExtractionError
		bytesErr *http.MaxBytesError
		bodyErr  *badRequestError
	)
	switch {
	case errors.Is(err, services.ErrFileTooLarge), errors.As(err, &bytesErr):
		return http.StatusRequestEntityTooLarge
	case services.IsValidation(err), errors.As(err, &bodyErr), errors.Is(err, models.ErrUnsupportedFileType) && !errors.As(err, &extErr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoDocuments):
		return http.StatusPreconditionFailed
	case errors.Is(err, services.ErrCorpusBudget):
		return http.StatusUnprocessableEntity
	case errors.As(err, &extErr):
		return http.StatusUnprocessableEntity
	case models.IsServiceError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}. Internal errors are logged and
// replaced with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, nil, false)
}

// writeErrorWith adds extra fields next to "error".
func writeErrorWith(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	respondError(w, r, err, extra, false)
}

// writeErrorDetailed keeps the underlying message even for internal errors.
func writeErrorDetailed(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, nil, true)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, extra map[string]any, detailed bool) {
	status := statusFor(err)
	middleware.AddSpanError(r.Context(), err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("❌ [%s] %s %s: %v", middleware.GetRequestID(r.Context()), r.Method, r.URL.Path, err)
		if !detailed {
			msg = "internal server error"
		}
	}

	body := map[string]any{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

// badRequestError is a malformed request body.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }
