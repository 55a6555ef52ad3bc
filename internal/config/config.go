// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	AI      AIConfig
	YouTube YouTubeConfig
	Ingest  IngestConfig
	Store   StoreConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// AIConfig holds configuration for the LLM provider and the turn loop.
type AIConfig struct {
	// Provider selects the chat backend: "openai" or "anthropic".
	Provider string
	// APIKey is a generic key used when a provider-specific key is unset.
	APIKey          string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	// BaseURL overrides the OpenAI endpoint for compatible servers
	// (Ollama, vLLM, Groq, LiteLLM).
	BaseURL string
	// Model is the chat model used for the decision step.
	Model string
	// MaxToolIterations bounds the number of dispatch cycles per turn.
	MaxToolIterations int
	// MCPConfigFilePath optionally points at an MCP servers config whose
	// tools are merged after the built-in ones.
	MCPConfigFilePath string
	// RequestTimeout bounds each completion / tool round trip.
	RequestTimeout time.Duration
}

// YouTubeConfig holds configuration for the search and transcript clients.
type YouTubeConfig struct {
	// APIKey authenticates against the YouTube Data API.
	APIKey string
	// MaxResults is the default result count for searches.
	MaxResults int64
	// TranscriptLanguage is the preferred caption language.
	TranscriptLanguage string
	// TranscriptPause is the mandatory pause between per-video transcript
	// fetches (rate limit on the transcript endpoint).
	TranscriptPause time.Duration
}

// IngestConfig holds configuration for the document-ingestion pipeline.
type IngestConfig struct {
	// ChunkSize is the split size in characters.
	ChunkSize int
	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int
	// EmbeddingModel is the embeddings model name.
	EmbeddingModel string
	// EmbeddingDimensions is the vector width persisted to the store.
	EmbeddingDimensions int
	// VectorDBPath is the on-disk sqlite-vec database path.
	VectorDBPath string
}

// StoreConfig holds configuration for turn-history persistence.
type StoreConfig struct {
	// DBPath is the SQLite database path for turn records.
	DBPath string
}

// ServerConfig holds configuration for the MCP tool-server mode.
type ServerConfig struct {
	Name    string
	Version string
	// TransportMode is "stdio" or "sse".
	TransportMode string
	// Address and Port apply to the SSE transport.
	Address string
	Port    int
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string
	// FilePath, when set, sends log output to a file instead of stderr.
	FilePath string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".youtube-agent")

	return &Config{
		AI: AIConfig{
			Provider:          "openai",
			Model:             "gpt-4o",
			MaxToolIterations: 20,
			RequestTimeout:    2 * time.Minute,
		},
		YouTube: YouTubeConfig{
			MaxResults:         5,
			TranscriptLanguage: "en",
			TranscriptPause:    3 * time.Second,
		},
		Ingest: IngestConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			EmbeddingModel:      "text-embedding-3-small",
			EmbeddingDimensions: 1536,
			VectorDBPath:        filepath.Join(dataDir, "vectors.db"),
		},
		Store: StoreConfig{
			DBPath: filepath.Join(dataDir, "turns.db"),
		},
		Server: ServerConfig{
			Name:          "youtube-agent",
			Version:       "0.1.0",
			TransportMode: "stdio",
			Address:       "localhost",
			Port:          8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// FromEnv overrides cfg fields from environment variables.
func FromEnv(cfg *Config) {
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("AI_MAX_TOOL_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AI.MaxToolIterations = n
		}
	}
	if v := os.Getenv("MCP_CONFIG_PATH"); v != "" {
		cfg.AI.MCPConfigFilePath = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Ingest.EmbeddingModel = v
	}
	if v := os.Getenv("VECTOR_DB_PATH"); v != "" {
		cfg.Ingest.VectorDBPath = v
	}
	if v := os.Getenv("TURN_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("SERVER_TRANSPORT"); v != "" {
		cfg.Server.TransportMode = v
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch strings.ToLower(c.AI.Provider) {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown AI provider: %s", c.AI.Provider)
	}
	if c.AI.MaxToolIterations < 1 {
		return fmt.Errorf("max tool iterations must be positive, got %d", c.AI.MaxToolIterations)
	}
	if c.YouTube.MaxResults < 1 {
		return fmt.Errorf("max results must be positive, got %d", c.YouTube.MaxResults)
	}
	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.EmbeddingDimensions < 1 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Ingest.EmbeddingDimensions)
	}
	switch c.Server.TransportMode {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unknown transport mode: %s", c.Server.TransportMode)
	}
	return nil
}
