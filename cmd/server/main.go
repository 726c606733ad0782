// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/prvr/studychat-gw/pkg/adapters/http"
	"github.com/prvr/studychat-gw/pkg/core/api"
	"github.com/prvr/studychat-gw/pkg/core/chat"
	"github.com/prvr/studychat-gw/pkg/core/config"
	"github.com/prvr/studychat-gw/pkg/core/materials"
	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/filestore"
	_ "github.com/prvr/studychat-gw/pkg/filestore/filesystem"
	_ "github.com/prvr/studychat-gw/pkg/filestore/memory"
	_ "github.com/prvr/studychat-gw/pkg/filestore/s3"
	"github.com/prvr/studychat-gw/pkg/observability/logging"
	"github.com/prvr/studychat-gw/pkg/storage"
	_ "github.com/prvr/studychat-gw/pkg/storage/memory"
	_ "github.com/prvr/studychat-gw/pkg/storage/postgres"
	_ "github.com/prvr/studychat-gw/pkg/storage/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 8080, "HTTP port to listen on")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Print version
	if *version {
		fmt.Printf("Study Chat Gateway Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}

	// Override port if specified
	if *port != 8080 {
		cfg.Server.Port = *port
	}

	// Initialize logger
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting Study Chat Gateway Server",
		"version", Version,
		"build_time", BuildTime)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
	}

	initCtx := context.Background()

	// Initialize session and material storage
	store, err := storage.Providers.New(initCtx, cfg.Storage.Type, cfg.StorageParams())
	if err != nil {
		logger.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())
	logger.Info("Initialized storage", "type", cfg.Storage.Type)

	// Initialize files store
	filesStore, err := filestore.Providers.New(initCtx, cfg.FileStore.Type, cfg.FileStoreParams())
	if err != nil {
		logger.Error("Failed to initialize file store", "type", cfg.FileStore.Type, "error", err)
		os.Exit(1)
	}
	defer filesStore.Close(context.Background())
	logger.Info("Initialized file store", "type", cfg.FileStore.Type)

	// Initialize the extraction service. The source resolves filestore://
	// references locally and everything else over HTTP.
	httpSource := extractor.NewHTTPSource(cfg.Extractor.FetchTimeout, cfg.Extractor.MaxFetchBytes)
	source := materials.NewFileStoreSource(filesStore, httpSource)
	extractSvc := extractor.NewService(source, extractor.NewMemoryCache(cfg.Extractor.CacheTTL), logger)
	logger.Info("Initialized extraction service",
		"fetch_timeout", cfg.Extractor.FetchTimeout,
		"cache_ttl", cfg.Extractor.CacheTTL)

	// Initialize LLM providers. Groq is the primary; Gemini is the one-shot
	// fallback and is only wired when a key is configured.
	var providers []chat.Provider
	if cfg.Providers.Groq.APIKey != "" {
		providers = append(providers, chat.Provider{
			Name:   "groq",
			Client: api.NewGroqClient(cfg.Providers.Groq.BaseURL, cfg.Providers.Groq.APIKey),
			Models: cfg.Providers.Groq.Models,
		})
		logger.Info("Initialized Groq provider", "models", cfg.Providers.Groq.Models)
	} else {
		logger.Warn("GROQ_API_KEY not set, chat requests will fail")
	}
	if cfg.Providers.Gemini.APIKey != "" {
		providers = append(providers, chat.Provider{
			Name:   "gemini",
			Client: api.NewGeminiClient(cfg.Providers.Gemini.BaseURL, cfg.Providers.Gemini.APIKey),
			Models: cfg.Providers.Gemini.Models,
		})
		logger.Info("Initialized Gemini fallback provider", "models", cfg.Providers.Gemini.Models)
	}

	orch := chat.NewOrchestrator(providers, logger)
	chatMgr := chat.NewManager(store, orch, extractSvc, logger)
	materialsSvc := materials.NewService(store, filesStore, extractSvc, logger)

	// Initialize HTTP adapter
	handler := httpAdapter.New(extractSvc, chatMgr, materialsSvc, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
