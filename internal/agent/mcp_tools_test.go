// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/velonavasiliki/youtube-agent/internal/logging"
)

func discardLogger() *logging.Logger {
	return logging.New(logging.Options{Output: io.Discard, Level: logging.Fatal})
}

func TestLoadMCPTools_UnavailableServers(t *testing.T) {
	tempDir := t.TempDir()

	// Servers that can't be reached contribute no tools; an entry with
	// neither command nor URL is skipped outright.
	validConfig := `{
		"mcpServers": {
			"sse-server": {
				"url": "http://localhost:1/sse"
			},
			"empty-server": {
			}
		}
	}`
	configPath := filepath.Join(tempDir, "mcp.json")
	if err := os.WriteFile(configPath, []byte(validConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mt, err := LoadMCPTools(context.Background(), configPath, discardLogger())
	if err != nil {
		t.Errorf("LoadMCPTools with unreachable servers should not return error: %v", err)
	}
	if mt != nil {
		t.Errorf("Expected nil MCPTools (no tools collected), got %v", mt)
	}
}

func TestLoadMCPTools_InvalidJSON(t *testing.T) {
	tempDir := t.TempDir()

	invalidConfig := `{
		"mcpServers": {
			"sse-server": {
				"url": "http://localhost:8080/sse",
	}`
	configPath := filepath.Join(tempDir, "invalid.json")
	if err := os.WriteFile(configPath, []byte(invalidConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadMCPTools(context.Background(), configPath, discardLogger()); err == nil {
		t.Error("Expected error for invalid config file, got nil")
	}
}

func TestLoadMCPTools_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")
	if _, err := LoadMCPTools(context.Background(), missing, discardLogger()); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestSchemaToMap_PadsEmptyObjectSchema(t *testing.T) {
	params, err := schemaToMap(map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	props, ok := params["properties"].(map[string]interface{})
	if !ok || len(props) != 1 {
		t.Fatalf("Expected padded properties with a dummy parameter, got %v", params["properties"])
	}
	if props["random_string"] == nil {
		t.Error("Expected dummy 'random_string' property for empty schema")
	}
}

func TestSchemaToMap_KeepsNonEmptySchema(t *testing.T) {
	params, err := schemaToMap(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string"},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	props := params["properties"].(map[string]interface{})
	if props["query"] == nil {
		t.Error("Expected 'query' property to survive")
	}
	if props["random_string"] != nil {
		t.Error("Non-empty schema should not be padded")
	}
}

// stubDispatcher is a ToolDispatcher with canned definitions and results.
type stubDispatcher struct {
	defs   []ToolDefinition
	result string
	err    error
	calls  []ToolCall
}

func (s *stubDispatcher) Definitions() []ToolDefinition { return s.defs }

func (s *stubDispatcher) Dispatch(_ context.Context, call ToolCall) (string, error) {
	s.calls = append(s.calls, call)
	return s.result, s.err
}

func TestCombineDispatchers_NilExtra(t *testing.T) {
	primary := &stubDispatcher{defs: []ToolDefinition{{Name: "search_videos"}}}
	combined := CombineDispatchers(primary, nil)
	if combined != ToolDispatcher(primary) {
		t.Error("Expected nil extra to return the primary dispatcher unchanged")
	}
}

func TestCombineDispatchers_PrimaryWinsOnConflict(t *testing.T) {
	primary := &stubDispatcher{
		defs:   []ToolDefinition{{Name: "search_videos"}},
		result: "primary",
	}
	extra := &stubDispatcher{
		defs:   []ToolDefinition{{Name: "search_videos"}, {Name: "extra_tool"}},
		result: "extra",
	}
	combined := CombineDispatchers(primary, extra)

	defs := combined.Definitions()
	if len(defs) != 2 {
		t.Fatalf("Expected 2 merged definitions, got %d", len(defs))
	}

	out, err := combined.Dispatch(context.Background(), ToolCall{Name: "search_videos"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "primary" {
		t.Errorf("Expected conflicting name to dispatch to primary, got '%s'", out)
	}

	out, err = combined.Dispatch(context.Background(), ToolCall{Name: "extra_tool"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "extra" {
		t.Errorf("Expected extra tool to dispatch to extra, got '%s'", out)
	}
}

func TestCombineDispatchers_UnknownNameGoesToPrimary(t *testing.T) {
	primary := &stubDispatcher{
		defs:   []ToolDefinition{{Name: "search_videos"}},
		result: "primary",
	}
	extra := &stubDispatcher{defs: []ToolDefinition{{Name: "extra_tool"}}}
	combined := CombineDispatchers(primary, extra)

	_, _ = combined.Dispatch(context.Background(), ToolCall{Name: "never_heard_of_it"})
	if len(primary.calls) != 1 {
		t.Fatalf("Expected unknown name to reach the primary registry, got %d calls", len(primary.calls))
	}
	if len(extra.calls) != 0 {
		t.Errorf("Expected extra dispatcher untouched, got %d calls", len(extra.calls))
	}
}
