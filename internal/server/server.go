// SPDX-License-Identifier: AGPL-3.0-only

// Package server exposes the built-in tool functions and the document
// pipeline over the Model Context Protocol, so other MCP hosts can reuse
// them without driving a conversation loop.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/velonavasiliki/youtube-agent/internal/agent"
	"github.com/velonavasiliki/youtube-agent/internal/config"
	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
	"github.com/velonavasiliki/youtube-agent/internal/store"
)

// Make os.OpenFile mockable for testing
var osOpenFile = os.OpenFile

// DocumentPipeline is the ingest capability the server exposes. It may be
// nil, in which case the document tools are not registered.
type DocumentPipeline interface {
	IngestURL(ctx context.Context, documentURL string) error
	SearchDocuments(ctx context.Context, query string, k int) ([]store.SearchHit, error)
}

// MCPServer serves the tool registry and document pipeline over MCP.
type MCPServer struct {
	dispatcher     agent.ToolDispatcher
	pipeline       DocumentPipeline
	server         *mcp.Server
	httpServer     *http.Server
	cancel         context.CancelFunc
	address        string
	port           int
	stopCh         chan struct{}
	wg             sync.WaitGroup
	config         *config.Config
	logger         *logging.Logger
	shutdownMutex  sync.Mutex
	isShuttingDown bool
}

// NewMCPServer creates an MCP server around the given tool dispatcher and
// document pipeline.
func NewMCPServer(cfg *config.Config, dispatcher agent.ToolDispatcher, pipeline DocumentPipeline) (*MCPServer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var logger *logging.Logger

	if cfg.Logging.FilePath != "" {
		var err error
		logger, err = logging.FileLogger(cfg.Logging.FilePath, logging.ParseLevel(cfg.Logging.Level))
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
	} else if cfg.Server.TransportMode == "stdio" {
		// For stdio transport, all logging must go to a file to avoid
		// corrupting the JSON-RPC stream on stdout
		execPath, err := os.Executable()
		if err != nil {
			execPath = cfg.Server.Name
		}
		execDir := filepath.Dir(execPath)
		logFilename := fmt.Sprintf("%s.log", cfg.Server.Name)
		logPath := filepath.Join(execDir, logFilename)

		logFile, err := osOpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(logFile)
			logger = logging.New(logging.Options{
				Output: logFile,
				Level:  logging.ParseLevel(cfg.Logging.Level),
			})
		} else {
			// Fall back to stderr to avoid corrupting stdout
			log.SetOutput(os.Stderr)
			logger = logging.New(logging.Options{
				Output: os.Stderr,
				Level:  logging.ParseLevel(cfg.Logging.Level),
			})
		}
	} else {
		logger = logging.New(logging.Options{
			Level: logging.ParseLevel(cfg.Logging.Level),
		})
	}

	logging.SetDefaultLogger(logger)

	switch cfg.Server.TransportMode {
	case "stdio":
		logger.Infof("Using stdio transport")
	case "sse":
		logger.Infof("Using SSE transport on %s:%d", cfg.Server.Address, cfg.Server.Port)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported transport mode: %s", cfg.Server.TransportMode))
	}

	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)

	return &MCPServer{
		dispatcher: dispatcher,
		pipeline:   pipeline,
		server:     mcpSrv,
		address:    cfg.Server.Address,
		port:       cfg.Server.Port,
		stopCh:     make(chan struct{}),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Start registers the tools and runs the configured transport until ctx is
// canceled.
func (s *MCPServer) Start(ctx context.Context) error {
	s.registerToolsDeclarative()

	switch s.config.Server.TransportMode {
	case "stdio":
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.server.Run(runCtx, &mcp.StdioTransport{}); err != nil {
				s.logger.Errorf("Error running MCP server: %v", err)
			}
		}()
	case "sse":
		addr := fmt.Sprintf("%s:%d", s.address, s.port)
		handler := mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
			return s.server
		}, nil)
		s.httpServer = &http.Server{Addr: addr, Handler: handler}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("Error running MCP server: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Errorf("Error stopping MCP server: %v", err)
		}
	}()

	return nil
}

// Done is closed once the server has stopped.
func (s *MCPServer) Done() <-chan struct{} {
	return s.stopCh
}

// Stop shuts the server down. It is safe to call more than once.
func (s *MCPServer) Stop() error {
	s.shutdownMutex.Lock()
	defer s.shutdownMutex.Unlock()

	if s.isShuttingDown {
		s.logger.Debugf("Stop called but server is already shutting down, ignoring")
		return nil
	}
	s.isShuttingDown = true

	if s.cancel != nil {
		s.cancel()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Internal(fmt.Errorf("error shutting down MCP server: %w", err))
		}
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.wg.Wait()
	return nil
}
