// Package app wires configuration, storage, AI clients and services into one
// graph shared by the HTTP server and the brdctl CLI.
package app

import (
	"context"
	"fmt"
	"log"

	"brd-generator/internal/api"
	"brd-generator/internal/chunker"
	"brd-generator/internal/config"
	"brd-generator/internal/db"
	"brd-generator/internal/extractor"
	"brd-generator/internal/gemini"
	"brd-generator/internal/openai"
	"brd-generator/internal/repository"
	"brd-generator/internal/services"
	"brd-generator/internal/storage"
)

/*
LEARNING: DEPENDENCY INJECTION BY HAND

Every dependency is created once here and passed down through constructors.
There is no container and no global state: reading this file top to bottom
shows the whole object graph.
*/

// App holds the constructed services. Close releases the database and the
// optional Gemini client.
type App struct {
	Config *config.Config
	DB     *db.GormDB

	Documents   *repository.DocumentRepositoryImpl
	Processor   *services.DocumentProcessor
	ProjectSvc  *services.ProjectService
	DocumentSvc *services.DocumentService
	RAG         *services.RAGService
	Chat        *services.ChatService
	BRD         *services.BRDService

	closers []func() error
}

// New connects to the database (migrating it) and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.NewGorm(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: database, closers: []func() error{database.Close}}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Printf("✓ Storage initialized (%s)", cfg.Storage.Type)

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithChatModel(cfg.ChatModel),
		openai.WithRateLimit(cfg.OpenAIRateLimit),
	)
	log.Println("✓ OpenAI client initialized")

	generator, err := a.generator(ctx, openaiClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.DB)
	brdRepo := repository.NewBRDRepository(database.DB)

	p := cfg.Pipeline
	chk := chunker.New(
		chunker.WithChunkTokens(p.ChunkTokens),
		chunker.WithOverlapTokens(p.OverlapTokens),
		chunker.WithCharsPerToken(p.CharsPerToken),
	)

	// Learning: openaiClient plays three roles here (transcriber, embedder
	// and possibly generator); each consumer only sees its own interface.
	a.Documents = docRepo
	a.Processor = services.NewDocumentProcessor(docRepo, chunkRepo, blobs, extractor.New(openaiClient), chk, openaiClient)
	a.ProjectSvc = services.NewProjectService(projectRepo, docRepo, chunkRepo, blobs)
	a.DocumentSvc = services.NewDocumentService(projectRepo, docRepo, chunkRepo, blobs, a.Processor, p.MaxUploadBytes)
	a.RAG = services.NewRAGService(projectRepo, openaiClient, chunkRepo, generator, p.MatchCount, p.SimilarityThreshold)
	a.Chat = services.NewChatService(projectRepo, convRepo, a.RAG, generator)
	corpus := services.NewCorpusAggregator(projectRepo, docRepo, chunkRepo, p.CorpusMaxChars())
	a.BRD = services.NewBRDService(projectRepo, brdRepo, corpus, generator)

	return a, nil
}

func (a *App) generator(ctx context.Context, openaiClient *openai.Client) (services.Generator, error) {
	if a.Config.LLMProvider != "gemini" {
		log.Printf("✓ Generation provider: openai (%s)", openaiClient.ChatModel)
		return openaiClient, nil
	}

	geminiClient, err := gemini.NewClient(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, geminiClient.Close)
	log.Printf("✓ Generation provider: gemini (%s)", a.Config.GeminiModel)
	return geminiClient, nil
}

// Handler builds the HTTP handler over the app's services.
func (a *App) Handler() *api.Handler {
	return api.NewHandler(a.ProjectSvc, a.DocumentSvc, a.RAG, a.Chat, a.BRD, a.Config.Pipeline.MaxUploadBytes)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("⚠️  Failed to close resource: %v", err)
		}
	}
}
