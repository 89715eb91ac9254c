package api

import (
	"fmt"
	"net/http"
	"time"

	"brd-generator/internal/models"
	"brd-generator/internal/services"

	"github.com/gorilla/mux"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type exportRequest struct {
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

func writeDOCX(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.DOCXFilename(time.Now())))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PreviewBRD returns generated markdown for review and editing.
func (h *Handler) PreviewBRD(w http.ResponseWriter, r *http.Request) {
	md, err := h.brds.Generate(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeErrorDetailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markdown": md})
}

// GenerateBRD generates and downloads the BRD as a Word document in one step.
func (h *Handler) GenerateBRD(w http.ResponseWriter, r *http.Request) {
	md, err := h.brds.Generate(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeErrorDetailed(w, r, err)
		return
	}

	data, err := h.brds.ExportDOCX(r.Context(), md, "")
	if err != nil {
		writeErrorDetailed(w, r, err)
		return
	}
	writeDOCX(w, data)
}

// ExportBRD renders client-supplied markdown, typically an edited preview.
func (h *Handler) ExportBRD(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	data, err := h.brds.ExportDOCX(r.Context(), req.Markdown, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDOCX(w, data)
}

func (h *Handler) SaveBRD(w http.ResponseWriter, r *http.Request) {
	var in models.BRDCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	brd, err := h.brds.Save(r.Context(), caller(r), mux.Vars(r)["id"], &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, brd)
}

func (h *Handler) ListBRDs(w http.ResponseWriter, r *http.Request) {
	brds, err := h.brds.List(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if brds == nil {
		brds = []*models.BRD{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brds":  brds,
		"count": len(brds),
	})
}

func (h *Handler) GetBRD(w http.ResponseWriter, r *http.Request) {
	brd, err := h.brds.Get(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brd)
}

func (h *Handler) DeleteBRD(w http.ResponseWriter, r *http.Request) {
	if err := h.brds.Delete(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadBRD exports a saved BRD under its stored title.
func (h *Handler) DownloadBRD(w http.ResponseWriter, r *http.Request) {
	brd, err := h.brds.Get(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := h.brds.ExportDOCX(r.Context(), brd.MarkdownContent, brd.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDOCX(w, data)
}
