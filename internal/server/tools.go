// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"reflect"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition represents a tool that can be registered with the MCP server
type ToolDefinition struct {
	// Name is the name of the tool
	Name string

	// Description is a brief description of what the tool does
	Description string

	// Handler is the function that will be called when the tool is invoked
	Handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

	// Parameters is the parameter schema for the tool (can be a struct)
	Parameters interface{}
}

// IngestDocumentParams holds parameters for the ingest_document tool
type IngestDocumentParams struct {
	URL string `json:"url" description:"URL of the PDF or HTML document to ingest"`
}

// SearchDocumentsParams holds parameters for the search_documents tool
type SearchDocumentsParams struct {
	Query string `json:"query" description:"free-text query to match against ingested documents"`
	Limit int    `json:"limit,omitempty" description:"number of chunks to return (default 4)"`
}

// registerToolsDeclarative sets up all the MCP tools using a more declarative approach
func (s *MCPServer) registerToolsDeclarative() {
	// The dispatcher's tools already carry JSON-schema parameter maps; they
	// are registered as-is and routed back through Dispatch.
	for _, def := range s.dispatcher.Definitions() {
		tool := &mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		}
		s.server.AddTool(tool, s.dispatchHandler(def.Name))
	}

	if s.pipeline == nil {
		return
	}

	// Document tools define their parameters as tagged structs.
	tools := []ToolDefinition{
		{
			Name:        "ingest_document",
			Description: "Downloads a PDF or HTML document, splits it into chunks, and stores chunk embeddings for retrieval.",
			Handler:     s.handleIngestDocument,
			Parameters:  IngestDocumentParams{},
		},
		{
			Name:        "search_documents",
			Description: "Searches previously ingested documents and returns the closest chunks.",
			Handler:     s.handleSearchDocuments,
			Parameters:  SearchDocumentsParams{},
		},
	}
	for _, tool := range tools {
		registerToolWithError(s.server, tool)
	}
}

// registerToolWithError registers a tool with the MCP server
func registerToolWithError(srv *mcp.Server, def ToolDefinition) {
	schema := buildSchema(def.Parameters)
	tool := &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
	srv.AddTool(tool, def.Handler)
}

// buildSchema converts a Go struct with json and description tags into a JSON Schema object
func buildSchema(params interface{}) map[string]interface{} {
	t := reflect.TypeOf(params)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := map[string]interface{}{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		parts := strings.Split(jsonTag, ",")
		fieldName := parts[0]
		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
			}
		}

		prop := map[string]interface{}{
			"type": goTypeToJSONType(field.Type),
		}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		properties[fieldName] = prop

		if !omitempty {
			required = append(required, fieldName)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// goTypeToJSONType maps Go types to JSON Schema types
func goTypeToJSONType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return "string"
	}
}
