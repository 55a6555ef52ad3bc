// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"testing"

	"github.com/openai/openai-go"
)

func TestToOpenAITools(t *testing.T) {
	tools := []ToolDefinition{
		{
			Name:        "search_videos",
			Description: "Search YouTube for videos",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search term",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "validate_date",
			Description: "Validate a date string",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}

	result := toOpenAITools(tools)

	if len(result) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(result))
	}
	if result[0].Function.Name != "search_videos" {
		t.Errorf("Expected tool name 'search_videos', got '%s'", result[0].Function.Name)
	}
	if result[1].Function.Name != "validate_date" {
		t.Errorf("Expected tool name 'validate_date', got '%s'", result[1].Function.Name)
	}
}

func TestToOpenAIMessage_User(t *testing.T) {
	msg := Message{Role: RoleUser, Content: "find me a cooking video"}
	result := toOpenAIMessage(msg)

	if result.OfUser == nil {
		t.Fatal("Expected user message, got nil")
	}
}

func TestToOpenAIMessage_Tool(t *testing.T) {
	msg := Message{Role: RoleTool, Content: "Title: Pasta 101", ToolCallID: "call_123"}
	result := toOpenAIMessage(msg)

	if result.OfTool == nil {
		t.Fatal("Expected tool message, got nil")
	}
	if result.OfTool.ToolCallID != "call_123" {
		t.Errorf("Expected ToolCallID 'call_123', got '%s'", result.OfTool.ToolCallID)
	}
}

func TestToOpenAIMessage_AssistantWithContent(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: "I can help with that"}
	result := toOpenAIMessage(msg)

	if result.OfAssistant == nil {
		t.Fatal("Expected assistant message, got nil")
	}
}

func TestToOpenAIMessage_AssistantWithToolCalls(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "search_videos", Arguments: `{"query":"cooking"}`},
			{ID: "call_2", Name: "validate_date", Arguments: `{}`},
		},
	}
	result := toOpenAIMessage(msg)

	if result.OfAssistant == nil {
		t.Fatal("Expected assistant message, got nil")
	}
	if len(result.OfAssistant.ToolCalls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(result.OfAssistant.ToolCalls))
	}
	if result.OfAssistant.ToolCalls[0].ID != "call_1" {
		t.Errorf("Expected tool call ID 'call_1', got '%s'", result.OfAssistant.ToolCalls[0].ID)
	}
	if result.OfAssistant.ToolCalls[0].Function.Name != "search_videos" {
		t.Errorf("Expected function name 'search_videos', got '%s'", result.OfAssistant.ToolCalls[0].Function.Name)
	}
	if result.OfAssistant.ToolCalls[1].Function.Arguments != `{}` {
		t.Errorf("Expected arguments '{}', got '%s'", result.OfAssistant.ToolCalls[1].Function.Arguments)
	}
}

func TestFromOpenAIMessage_TextOnly(t *testing.T) {
	oaiMsg := openai.ChatCompletionMessage{
		Content: "Here is a video you might like",
	}

	result := fromOpenAIMessage(oaiMsg)

	if result.Role != RoleAssistant {
		t.Errorf("Expected role 'assistant', got '%s'", result.Role)
	}
	if result.Content != "Here is a video you might like" {
		t.Errorf("Expected content 'Here is a video you might like', got '%s'", result.Content)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("Expected 0 tool calls, got %d", len(result.ToolCalls))
	}
}

func TestFromOpenAIMessage_WithToolCalls(t *testing.T) {
	oaiMsg := openai.ChatCompletionMessage{
		Content: "",
		ToolCalls: []openai.ChatCompletionMessageToolCall{
			{
				ID: "call_abc",
				Function: openai.ChatCompletionMessageToolCallFunction{
					Name:      "search_videos",
					Arguments: `{"query":"jazz concerts"}`,
				},
			},
		},
	}

	result := fromOpenAIMessage(oaiMsg)

	if result.Role != RoleAssistant {
		t.Errorf("Expected role 'assistant', got '%s'", result.Role)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.ID != "call_abc" {
		t.Errorf("Expected ID 'call_abc', got '%s'", tc.ID)
	}
	if tc.Name != "search_videos" {
		t.Errorf("Expected name 'search_videos', got '%s'", tc.Name)
	}
	if tc.Arguments != `{"query":"jazz concerts"}` {
		t.Errorf("Expected arguments '{\"query\":\"jazz concerts\"}', got '%s'", tc.Arguments)
	}
}
