// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/velonavasiliki/youtube-agent/internal/agent"
	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/singleton"
)

// extractParams extracts parameters from a tool request
func extractParams(request *mcp.CallToolRequest, params interface{}) error {
	if len(request.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(request.Params.Arguments, params); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid parameters: %v", err))
	}
	return nil
}

// createTextResponse wraps plain text as a tool result
func createTextResponse(text string) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: text,
			},
		},
	}, nil
}

// createJSONResponse marshals v and wraps it as a tool result
func createJSONResponse(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to marshal response: %w", err))
	}
	return createTextResponse(string(out))
}

// dispatchHandler routes one registered tool name back through the dispatcher.
func (s *MCPServer) dispatchHandler(name string) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logger.Debugf("Handling %s request", name)

		out, err := s.dispatcher.Dispatch(ctx, agent.ToolCall{
			Name:      name,
			Arguments: string(request.Params.Arguments),
		})
		if err != nil {
			return nil, err
		}
		return createTextResponse(out)
	}
}

// handleIngestDocument runs the ingestion pipeline for one document URL. The
// vector store is locked for the duration so concurrent ingests of the same
// store are rejected instead of interleaved.
func (s *MCPServer) handleIngestDocument(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params IngestDocumentParams
	if err := extractParams(request, &params); err != nil {
		return nil, err
	}
	if params.URL == "" {
		return nil, errors.InvalidInput("url is required")
	}

	s.logger.Debugf("Handling ingest_document request for %s", params.URL)

	lock, acquired, err := singleton.TryAcquire(s.config.Ingest.VectorDBPath)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, errors.InvalidInput("another ingestion is already running against this vector store")
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warnf("Failed to release store lock: %v", err)
		}
	}()

	if err := s.pipeline.IngestURL(ctx, params.URL); err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("ingested %s", params.URL),
	})
}

// handleSearchDocuments returns the nearest chunks for a query.
func (s *MCPServer) handleSearchDocuments(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params SearchDocumentsParams
	if err := extractParams(request, &params); err != nil {
		return nil, err
	}
	if params.Query == "" {
		return nil, errors.InvalidInput("query is required")
	}

	s.logger.Debugf("Handling search_documents request for %q", params.Query)

	hits, err := s.pipeline.SearchDocuments(ctx, params.Query, params.Limit)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(hits)
}
