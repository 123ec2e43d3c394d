package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/collab-workspace/backend/api/handlers"
	"github.com/collab-workspace/backend/internal/logger"
	"github.com/collab-workspace/backend/internal/store"
	"github.com/collab-workspace/backend/internal/ws"
	"github.com/collab-workspace/backend/pkg/assist"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	eventLogPath := getEnv("EVENT_LOG", "")

	// Process-wide state is constructed once here and passed explicitly to
	// the handlers; there are no ambient globals.
	workspaceStore := store.NewWorkspaceStore()
	registry := ws.NewHubManager()
	defer registry.Close()

	engine := ws.NewEngine(workspaceStore, registry)
	if eventLogPath != "" {
		eventLog, err := logger.NewEventLog(eventLogPath)
		if err != nil {
			log.Fatalf("Failed to open event log: %v", err)
		}
		defer eventLog.Close()
		engine.SetEventLog(eventLog)
	}

	router := ws.NewRouter(workspaceStore, engine, assist.NewEchoResponder())
	connHandler := ws.NewHandler(workspaceStore, registry, engine, router)

	// Initialize handlers
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceStore, registry)
	wsHandler := handlers.NewWebSocketHandler(connHandler)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		workspaceHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		registry.Close()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
