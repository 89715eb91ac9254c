package api

import (
	"errors"
	"net/http"

	"brd-generator/internal/middleware"
	"brd-generator/internal/models"
	"brd-generator/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in RAM;
// the rest spills to temp files.
const multipartMemory = 32 << 20

// Handler handles HTTP requests
// Learning: Uses INTERFACES defined in this package (consumer-driven)
type Handler struct {
	projects  ProjectService
	documents DocumentService
	search    SearchService
	chat      ChatService
	brds      BRDService
	maxUpload int64
}

func NewHandler(
	projects ProjectService,
	documents DocumentService,
	search SearchService,
	chat ChatService,
	brds BRDService,
	maxUpload int64,
) *Handler {
	return &Handler{
		projects:  projects,
		documents: documents,
		search:    search,
		chat:      chat,
		brds:      brds,
		maxUpload: maxUpload,
	}
}

// caller returns the id RequireCaller put in the context. Routes are only
// reachable through that middleware, so a miss is a wiring bug.
func caller(r *http.Request) uuid.UUID {
	userID, _ := middleware.CallerFromContext(r.Context())
	return userID
}

// documentResponse adds the derived status to the stored fields.
type documentResponse struct {
	*models.Document
	Status models.DocumentStatus `json:"status"`
}

func newDocumentResponse(doc *models.Document) documentResponse {
	return documentResponse{Document: doc, Status: doc.Status()}
}

// Project handlers

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	project, err := h.projects.Create(r.Context(), caller(r), &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var update models.ProjectUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, r, err)
		return
	}

	project, err := h.projects.Update(r.Context(), caller(r), mux.Vars(r)["id"], &update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projects.Stats(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Document handlers

// UploadDocument accepts multipart field "file" and answers once the document
// is processed (201) or has failed processing (error status, with the stored
// document in the body).
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		// room for the multipart envelope around the file itself
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var bytesErr *http.MaxBytesError
		if errors.As(err, &bytesErr) {
			writeError(w, r, services.ErrFileTooLarge)
			return
		}
		writeError(w, r, &badRequestError{err: err})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, &badRequestError{err: errors.New(`multipart field "file" is required`)})
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(r.Context(), services.UploadRequest{
		UserID:    caller(r),
		ProjectID: mux.Vars(r)["id"],
		Filename:  header.Filename,
		Content:   file,
	})
	if err != nil {
		if doc != nil {
			writeErrorWith(w, r, err, map[string]any{"document": newDocumentResponse(doc)})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newDocumentResponse(doc))
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i, doc := range docs {
		out[i] = newDocumentResponse(doc)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"count":     len(out),
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Delete(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProcessDocument reruns the pipeline for an unprocessed or failed document.
func (h *Handler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Process(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		if doc != nil {
			writeErrorWith(w, r, err, map[string]any{"document": newDocumentResponse(doc)})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

// Retrieval handlers

type queryRequest struct {
	Query string `json:"query"`
}

// Search returns the ranked chunk matches without generation.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	matches, err := h.search.SearchProject(r.Context(), caller(r), mux.Vars(r)["id"], req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []models.ChunkMatch{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": matches,
		"count":   len(matches),
	})
}

// Ask answers one question without a conversation.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	answer, rc, err := h.search.Answer(r.Context(), caller(r), mux.Vars(r)["id"], req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"answer":  answer,
		"sources": rc.Sources,
	})
}
