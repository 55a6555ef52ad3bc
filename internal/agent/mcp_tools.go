// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
)

// MCPTools is a ToolDispatcher backed by external MCP servers. It lets a
// deployment extend the assistant with extra tools beyond the built-in set.
type MCPTools struct {
	defs         []ToolDefinition
	sessionBySrv map[string]*mcp.ClientSession
	tool2srv     map[string]string
	logger       *logging.Logger
}

// mcpServersFile mirrors the conventional mcpServers JSON config.
type mcpServersFile struct {
	MCP map[string]struct {
		Command string   `json:"command,omitempty"`
		Args    []string `json:"args,omitempty"`
		URL     string   `json:"url,omitempty"`
	} `json:"mcpServers"`
}

// LoadMCPTools connects to every server in the config file and collects their
// tools. Servers that fail to connect or list are skipped with a warning.
// Returns nil when the config declares no usable tools.
func LoadMCPTools(ctx context.Context, configPath string, logger *logging.Logger) (*MCPTools, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg mcpServersFile
	if err = json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	mt := &MCPTools{
		sessionBySrv: map[string]*mcp.ClientSession{},
		tool2srv:     map[string]string{},
		logger:       logger,
	}

	for name, spec := range cfg.MCP {
		var tp mcp.Transport
		switch {
		case spec.Command != "":
			tp = &mcp.CommandTransport{Command: exec.Command(spec.Command, spec.Args...)}
		case spec.URL != "":
			tp = &mcp.SSEClientTransport{Endpoint: spec.URL}
		default:
			continue
		}

		cli := mcp.NewClient(&mcp.Implementation{Name: "youtube-agent", Version: "1.0.0"}, nil)
		session, err := cli.Connect(ctx, tp, nil)
		if err != nil {
			logger.Warnf("Failed to connect to MCP server %s: %v", name, err)
			continue
		}
		mt.sessionBySrv[name] = session

		resp, err := session.ListTools(ctx, nil)
		if err != nil {
			logger.Warnf("Failed to list tools for MCP server %s: %v", name, err)
			continue
		}
		for _, tl := range resp.Tools {
			params, err := schemaToMap(tl.InputSchema)
			if err != nil {
				logger.Warnf("Skipping MCP tool %s: %v", tl.Name, err)
				continue
			}
			mt.defs = append(mt.defs, ToolDefinition{
				Name:        tl.Name,
				Description: tl.Description,
				Parameters:  params,
			})
			mt.tool2srv[tl.Name] = name
		}
	}

	if len(mt.defs) == 0 {
		mt.Close()
		return nil, nil
	}
	return mt, nil
}

// schemaToMap flattens an MCP input schema into the map form the providers
// expect, padding empty object schemas with a dummy property because the
// OpenAI API rejects parameter-less tools.
func schemaToMap(schema any) (map[string]interface{}, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("unmarshal input schema: %w", err)
	}
	if params == nil {
		params = map[string]interface{}{"type": "object"}
	}
	if params["type"] == "object" {
		props, _ := params["properties"].(map[string]interface{})
		if len(props) == 0 {
			params["properties"] = map[string]interface{}{
				"random_string": map[string]interface{}{
					"type":        "string",
					"description": "Dummy parameter for no-parameter tools",
				},
			}
			params["required"] = []string{"random_string"}
		}
	}
	return params, nil
}

// Definitions implements ToolDispatcher.
func (mt *MCPTools) Definitions() []ToolDefinition {
	return mt.defs
}

// Dispatch routes the model's tool call to the owning MCP server.
func (mt *MCPTools) Dispatch(ctx context.Context, call ToolCall) (string, error) {
	var args map[string]interface{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", errors.InvalidInput("malformed tool arguments: " + err.Error())
		}
	}

	serverName, ok := mt.tool2srv[call.Name]
	if !ok {
		return "", errors.InvalidInput("unknown tool: " + call.Name)
	}
	session, ok := mt.sessionBySrv[serverName]
	if !ok {
		return "", errors.NotFound("MCP server for tool", call.Name)
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: args,
	})
	if err != nil {
		return "", errors.ExternalCall("MCP tool "+call.Name, err)
	}
	out, _ := json.Marshal(res.Content)
	return string(out), nil
}

// Close shuts down all server sessions.
func (mt *MCPTools) Close() {
	for name, session := range mt.sessionBySrv {
		if err := session.Close(); err != nil {
			mt.logger.Warnf("Failed to close MCP session %s: %v", name, err)
		}
	}
}

// combinedDispatcher merges a primary dispatcher with extra tools. Primary
// tool names always win; extra tools with conflicting names are dropped from
// the advertised set.
type combinedDispatcher struct {
	primary      ToolDispatcher
	extra        ToolDispatcher
	primaryNames map[string]bool
	extraNames   map[string]bool
}

// CombineDispatchers layers extra tools (e.g. MCP-provided ones) behind the
// built-in registry. A nil extra returns primary unchanged.
func CombineDispatchers(primary, extra ToolDispatcher) ToolDispatcher {
	if extra == nil {
		return primary
	}
	primaryNames := map[string]bool{}
	for _, d := range primary.Definitions() {
		primaryNames[d.Name] = true
	}
	extraNames := map[string]bool{}
	for _, d := range extra.Definitions() {
		extraNames[d.Name] = true
	}
	return &combinedDispatcher{
		primary:      primary,
		extra:        extra,
		primaryNames: primaryNames,
		extraNames:   extraNames,
	}
}

func (c *combinedDispatcher) Definitions() []ToolDefinition {
	defs := c.primary.Definitions()
	for _, d := range c.extra.Definitions() {
		if !c.primaryNames[d.Name] {
			defs = append(defs, d)
		}
	}
	return defs
}

func (c *combinedDispatcher) Dispatch(ctx context.Context, call ToolCall) (string, error) {
	if !c.primaryNames[call.Name] && c.extraNames[call.Name] {
		return c.extra.Dispatch(ctx, call)
	}
	// Known primary names and unknown names both go to the primary registry,
	// which produces the canonical unknown-tool error for the latter.
	return c.primary.Dispatch(ctx, call)
}
