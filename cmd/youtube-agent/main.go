// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/agent"
	"github.com/velonavasiliki/youtube-agent/internal/config"
	"github.com/velonavasiliki/youtube-agent/internal/ingest"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
	"github.com/velonavasiliki/youtube-agent/internal/model"
	"github.com/velonavasiliki/youtube-agent/internal/server"
	"github.com/velonavasiliki/youtube-agent/internal/singleton"
	"github.com/velonavasiliki/youtube-agent/internal/store"
	"github.com/velonavasiliki/youtube-agent/internal/tools"
	"github.com/velonavasiliki/youtube-agent/internal/youtube"
)

var (
	serve           = flag.Bool("serve", false, "Run as an MCP tool server instead of the interactive chat")
	address         = flag.String("address", "", "The address to bind the MCP server to")
	port            = flag.Int("port", 0, "The port to bind the MCP server to")
	transport       = flag.String("transport", "", "MCP transport mode: sse or stdio")
	logLevel        = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	logFile         = flag.String("log-file", "", "Log file path (default: stderr)")
	version         = flag.Bool("version", false, "Show version information and exit")
	aiProvider      = flag.String("ai-provider", "", "AI provider: openai or anthropic (default: openai)")
	aiBaseURL       = flag.String("ai-base-url", "", "Custom base URL for OpenAI-compatible endpoints (e.g. Ollama, vLLM, Groq, LiteLLM)")
	aiModel         = flag.String("ai-model", "", "AI model to use for the chat (default: gpt-4o)")
	aiMaxIterations = flag.Int("ai-max-iterations", 0, "Maximum tool-dispatch cycles per turn (default: 20)")
	mcpConfigPath   = flag.String("mcp-config-path", "", "Path to an MCP servers config whose tools are merged after the built-in ones")
	youtubeAPIKey   = flag.String("youtube-api-key", "", "YouTube Data API key")
	turnDBPath      = flag.String("db-path", "", "Path to SQLite database for turn history (default: ~/.youtube-agent/turns.db)")
	vectorDBPath    = flag.String("vector-db-path", "", "Path to the sqlite-vec database for ingested documents (default: ~/.youtube-agent/vectors.db)")
	ingestURL       = flag.String("ingest", "", "Ingest the PDF or HTML document at this URL and exit")
	searchDocs      = flag.String("search-docs", "", "Search ingested documents for this query and exit")
)

func main() {
	flag.Parse()

	cfg := loadConfig()

	if *version {
		log.Printf("%s version %s", cfg.Server.Name, cfg.Server.Version)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *ingestURL != "":
		if err := runIngest(ctx, cfg, *ingestURL); err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
	case *searchDocs != "":
		if err := runSearchDocs(ctx, cfg, *searchDocs); err != nil {
			log.Fatalf("Document search failed: %v", err)
		}
	case *serve:
		if err := runServer(ctx, cfg); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	default:
		if err := runChat(ctx, cfg); err != nil {
			log.Fatalf("Chat failed: %v", err)
		}
	}
}

// loadConfig loads configuration from defaults, environment and flags.
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	config.FromEnv(cfg)
	applyCommandLineFlagsToConfig(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// applyCommandLineFlagsToConfig applies command line flags to the configuration
func applyCommandLineFlagsToConfig(cfg *config.Config) {
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *transport != "" {
		cfg.Server.TransportMode = *transport
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}
	if *aiProvider != "" {
		cfg.AI.Provider = *aiProvider
	}
	if *aiBaseURL != "" {
		cfg.AI.BaseURL = *aiBaseURL
	}
	if *aiModel != "" {
		cfg.AI.Model = *aiModel
	}
	if *aiMaxIterations > 0 {
		cfg.AI.MaxToolIterations = *aiMaxIterations
	}
	if *mcpConfigPath != "" {
		cfg.AI.MCPConfigFilePath = *mcpConfigPath
	}
	if *youtubeAPIKey != "" {
		cfg.YouTube.APIKey = *youtubeAPIKey
	}
	if *turnDBPath != "" {
		cfg.Store.DBPath = *turnDBPath
	}
	if *vectorDBPath != "" {
		cfg.Ingest.VectorDBPath = *vectorDBPath
	}
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if cfg.Logging.FilePath != "" {
		return logging.FileLogger(cfg.Logging.FilePath, logging.ParseLevel(cfg.Logging.Level))
	}
	return logging.New(logging.Options{Level: logging.ParseLevel(cfg.Logging.Level)}), nil
}

// newRegistry wires the YouTube clients into the tool registry.
func newRegistry(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*tools.Registry, error) {
	ytClient, err := youtube.NewClient(ctx, cfg.YouTube.APIKey, logger)
	if err != nil {
		return nil, err
	}
	transcripts := youtube.NewTranscripts(nil, cfg.YouTube.TranscriptLanguage, cfg.YouTube.TranscriptPause, logger)
	return tools.NewRegistry(ytClient, transcripts, logger), nil
}

// embeddingAPIKey resolves the key used for the embeddings endpoint.
func embeddingAPIKey(cfg *config.Config) string {
	if cfg.AI.OpenAIAPIKey != "" {
		return cfg.AI.OpenAIAPIKey
	}
	return cfg.AI.APIKey
}

// newPipeline wires the embedder and vector store into an ingest pipeline.
// The returned cleanup closes the vector store.
func newPipeline(cfg *config.Config, logger *logging.Logger) (*ingest.Pipeline, func(), error) {
	embedder := ingest.NewOpenAIEmbedder(embeddingAPIKey(cfg), cfg.AI.BaseURL,
		cfg.Ingest.EmbeddingModel, cfg.Ingest.EmbeddingDimensions)
	vectors, err := store.NewVectorStore(cfg.Ingest.VectorDBPath, cfg.Ingest.EmbeddingDimensions)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := vectors.Close(); err != nil {
			logger.Warnf("Failed to close vector store: %v", err)
		}
	}
	return ingest.NewPipeline(cfg.Ingest, nil, embedder, vectors, logger), cleanup, nil
}

// runChat drives the interactive conversation loop on stdin/stdout.
func runChat(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logging.SetDefaultLogger(logger)

	var turnStore model.TurnStore
	if cfg.Store.DBPath != "" {
		turnStore, err = store.NewSQLiteStore(cfg.Store.DBPath)
		if err != nil {
			return fmt.Errorf("create turn store: %w", err)
		}
		defer func() {
			if err := turnStore.Close(); err != nil {
				logger.Warnf("Failed to close turn store: %v", err)
			}
		}()
	}

	registry, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var dispatcher agent.ToolDispatcher = registry
	if cfg.AI.MCPConfigFilePath != "" {
		mcpTools, err := agent.LoadMCPTools(ctx, cfg.AI.MCPConfigFilePath, logger)
		if err != nil {
			logger.Warnf("Failed to load MCP tools: %v", err)
		} else if mcpTools != nil {
			defer mcpTools.Close()
			dispatcher = agent.CombineDispatchers(registry, mcpTools)
		}
	}

	session, err := agent.NewSession(cfg, dispatcher, turnStore, logger)
	if err != nil {
		return err
	}

	fmt.Println("YouTube assistant ready. Ask for videos, dates or transcripts; type 'quit' or 'exit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit":
			fmt.Println("Goodbye!")
			return nil
		}

		reply, err := session.RunTurn(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}

// runIngest ingests one document URL into the vector store and exits. The
// store is locked so two ingest runs cannot interleave writes.
func runIngest(ctx context.Context, cfg *config.Config, documentURL string) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	lock, acquired, err := singleton.TryAcquire(cfg.Ingest.VectorDBPath)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another ingestion is already running against %s", cfg.Ingest.VectorDBPath)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("Failed to release store lock: %v", err)
		}
	}()

	pipeline, cleanup, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := pipeline.IngestURL(ctx, documentURL); err != nil {
		return err
	}
	fmt.Printf("Ingested %s\n", documentURL)
	return nil
}

// runSearchDocs prints the closest ingested chunks for a query and exits.
func runSearchDocs(ctx context.Context, cfg *config.Config, query string) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	pipeline, cleanup, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	hits, err := pipeline.SearchDocuments(ctx, query, 4)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No matching chunks found.")
		return nil
	}
	for i, hit := range hits {
		fmt.Printf("%d. %s (distance %.4f)\n%s\n\n", i+1, hit.Source, hit.Distance, hit.Content)
	}
	return nil
}

// runServer exposes the tool registry and document pipeline over MCP.
func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	registry, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	pipeline, cleanup, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpServer, err := server.NewMCPServer(cfg, registry, pipeline)
	if err != nil {
		return err
	}
	if err := mcpServer.Start(ctx); err != nil {
		return err
	}
	logging.GetDefaultLogger().Infof("MCP server started")

	waitForShutdown(ctx, mcpServer)
	return nil
}

// waitForShutdown blocks until the context is canceled or the transport
// exits, then stops the server with a timeout.
func waitForShutdown(ctx context.Context, mcpServer *server.MCPServer) {
	logger := logging.GetDefaultLogger()

	select {
	case <-ctx.Done():
		logger.Infof("Received termination signal, shutting down...")
	case <-mcpServer.Done():
		logger.Infof("Server transport exited, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	shutdownDone := make(chan struct{})
	go func() {
		if err := mcpServer.Stop(); err != nil {
			logger.Errorf("Error during shutdown: %v", err)
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Infof("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		logger.Warnf("Shutdown timed out")
	}
}
