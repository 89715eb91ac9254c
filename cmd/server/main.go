package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brd-generator/internal/api"
	"brd-generator/internal/app"
	"brd-generator/internal/config"
	"brd-generator/internal/telemetry"
)

/*
LEARNING: GRACEFUL SHUTDOWN PATTERN WITH OBSERVABILITY

This main function demonstrates:
1. Service initialization and dependency injection (internal/app)
2. Distributed tracing with Jaeger
3. Graceful shutdown handling (listening for SIGINT/SIGTERM)
4. Proper resource cleanup order

Uploads are processed inside the request, so there is no background worker
to stop here; `brdctl reprocess` runs the worker pool out of band.
*/

func main() {
	log.Println("🚀 Starting BRD Generator...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize Jaeger tracing
	// Learning: Do this FIRST so all operations are traced
	jaegerShutdown, err := telemetry.InitJaeger(telemetry.Options{
		ServiceName:    "brd-generator",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.JaegerEndpoint,
		SamplingRatio:  cfg.TraceSampling,
	})
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize services: %v", err)
	}
	defer application.Close()

	router := api.SetupRoutes(application.Handler())

	// Configure HTTP server
	// Learning: chat answers stream for a long time, so WriteTimeout is
	// configured separately from ReadTimeout
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Start HTTP server in a goroutine
	// Learning: This allows us to handle shutdown signals concurrently
	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 API Endpoints:")
		log.Printf("   POST   /api/projects                    - Create project")
		log.Printf("   POST   /api/projects/:id/documents      - Upload and process document")
		log.Printf("   POST   /api/projects/:id/search         - Semantic search")
		log.Printf("   POST   /api/projects/:id/chat           - Streaming chat")
		log.Printf("   GET    /api/projects/:id/chat/ws        - Chat over WebSocket")
		log.Printf("   POST   /api/projects/:id/brd/preview    - Generate BRD markdown")
		log.Printf("   POST   /api/projects/:id/brd/generate   - Generate BRD as .docx")
		log.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Learning: in-flight uploads and chat streams get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server shutdown complete")
}
