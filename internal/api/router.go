package api

import (
	"net/http"

	"brd-generator/internal/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	// Learning: Middleware runs in order - tracing first, then recovery, then CORS
	r.Use(middleware.TracingMiddleware)       // Add tracing spans to all requests
	r.Use(middleware.ErrorRecoveryMiddleware) // Catch panics
	r.Use(middleware.CORSMiddleware)          // Handle CORS

	// Health check endpoint (no caller required)
	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequireCaller)

	// Project endpoints
	api.HandleFunc("/projects", h.CreateProject).Methods("POST")
	api.HandleFunc("/projects", h.ListProjects).Methods("GET")
	api.HandleFunc("/projects/{id}", h.GetProject).Methods("GET")
	api.HandleFunc("/projects/{id}", h.UpdateProject).Methods("PUT")
	api.HandleFunc("/projects/{id}", h.DeleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{id}/stats", h.ProjectStats).Methods("GET")

	// Document endpoints
	api.HandleFunc("/projects/{id}/documents", h.UploadDocument).Methods("POST")
	api.HandleFunc("/projects/{id}/documents", h.ListDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", h.GetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}", h.DeleteDocument).Methods("DELETE")
	api.HandleFunc("/documents/{id}/process", h.ProcessDocument).Methods("POST")

	// RAG endpoints
	api.HandleFunc("/projects/{id}/search", h.Search).Methods("POST")
	api.HandleFunc("/projects/{id}/ask", h.Ask).Methods("POST")

	// Chat endpoints
	api.HandleFunc("/projects/{id}/chat", h.Chat).Methods("POST")
	api.HandleFunc("/projects/{id}/chat/ws", h.ChatWebSocket).Methods("GET")
	api.HandleFunc("/projects/{id}/conversations", h.ListConversations).Methods("GET")
	api.HandleFunc("/conversations/{id}/messages", h.ListMessages).Methods("GET")

	// BRD endpoints
	api.HandleFunc("/projects/{id}/brd/preview", h.PreviewBRD).Methods("POST")
	api.HandleFunc("/projects/{id}/brd/generate", h.GenerateBRD).Methods("POST")
	api.HandleFunc("/brd/export", h.ExportBRD).Methods("POST")
	api.HandleFunc("/projects/{id}/brds", h.SaveBRD).Methods("POST")
	api.HandleFunc("/projects/{id}/brds", h.ListBRDs).Methods("GET")
	api.HandleFunc("/brds/{id}", h.GetBRD).Methods("GET")
	api.HandleFunc("/brds/{id}", h.DeleteBRD).Methods("DELETE")
	api.HandleFunc("/brds/{id}/docx", h.DownloadBRD).Methods("GET")

	// Learning: mux only runs middleware for a matched route, so preflight
	// requests need a route of their own for CORSMiddleware to answer them.
	api.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
