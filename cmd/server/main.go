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

	"gwi.com/toolchat/internal/api"
	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/session"
	"gwi.com/toolchat/internal/store"
	"gwi.com/toolchat/internal/tools"
)

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.SessionStore == config.StoreSQLite {
		s, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return store.NewMemoryStore(), nil
}

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.Debug() {
		log.Println("Service starting in DEBUG mode")
	}

	personas, err := config.LoadPersonas(cfg.PersonasPath)
	if err != nil {
		log.Fatalf("Failed to load personas: %v", err)
	}

	dbStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.SessionStore, err)
	}
	defer dbStore.Close()
	log.Printf("Using %s session store", cfg.SessionStore)

	toolset := tools.NewDefaultSet(tools.Options{
		Timeout:    cfg.ToolTimeout,
		MaxResults: cfg.SearchMaxResults,
		Lang:       cfg.WikipediaLang,
	})

	llmService := core.NewLLMService(cfg.GeminiModel, cfg.MaxToolIterations, cfg.Debug())

	chatService, err := core.NewChatService(dbStore, llmService, personas, toolset)
	if err != nil {
		log.Fatalf("Failed to initialize chat service: %v", err)
	}
	reframeService := core.NewReframeService(dbStore, llmService)

	stylesheet := api.LoadStylesheet(cfg.StylesheetPath)
	if stylesheet == "" && cfg.Debug() {
		log.Printf("No stylesheet at %q, serving unstyled pages", cfg.StylesheetPath)
	}

	apiHandler := api.NewAPIHandler(chatService, reframeService, session.NewManager(), stylesheet)
	router := api.NewRouter(apiHandler, cfg.SecureCookies)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // a tool-calling turn can take several model round trips
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
