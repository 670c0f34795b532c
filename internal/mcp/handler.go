package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tool names
const (
	ToolTestMatch       = "btw_test_match"
	ToolRecentForwards  = "btw_recent_forwards"
	ToolSettingsSummary = "btw_settings_summary"
	ToolResolveImage    = "btw_resolve_image"
)

const maxRecentForwards = 100

// Handler handles MCP tool calls using the HTTP client
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// HandleToolCall handles a tool call and returns the result
func (h *Handler) HandleToolCall(name string, args map[string]interface{}) (interface{}, error) {
	switch name {
	case ToolTestMatch:
		return h.handleTestMatch(args)
	case ToolRecentForwards:
		return h.handleRecentForwards(args)
	case ToolSettingsSummary:
		return h.client.SettingsSummary()
	case ToolResolveImage:
		return h.handleResolveImage(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (h *Handler) handleTestMatch(args map[string]interface{}) (interface{}, error) {
	sourceID := strings.TrimSpace(getStringArg(args, "source_id", ""))
	if sourceID == "" {
		return nil, errors.New("source_id is required")
	}
	return h.client.TestMatch(sourceID, getStringArg(args, "text", ""))
}

func (h *Handler) handleRecentForwards(args map[string]interface{}) (interface{}, error) {
	limit := getIntArg(args, "limit", 20)
	if limit <= 0 {
		limit = 20
	}
	if limit > maxRecentForwards {
		limit = maxRecentForwards
	}

	records, err := h.client.RecentForwards(limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []ForwardRecord{}
	}
	return map[string]interface{}{"records": records, "count": len(records)}, nil
}

func (h *Handler) handleResolveImage(args map[string]interface{}) (interface{}, error) {
	path := getStringArg(args, "path", "")
	if path == "" {
		return nil, errors.New("path is required")
	}
	return h.client.ResolveImage(path)
}

// ============ Helpers ============

func getStringArg(args map[string]interface{}, key, defaultValue string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

func getIntArg(args map[string]interface{}, key string, defaultValue int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	if v, ok := args[key].(int); ok {
		return v
	}
	return defaultValue
}

// ToArgs converts a typed tool input into the generic argument map
func ToArgs(input interface{}) map[string]interface{} {
	args := map[string]interface{}{}
	if b, err := json.Marshal(input); err == nil {
		json.Unmarshal(b, &args)
	}
	return args
}

// FormatToolResult formats a tool result for MCP response
func FormatToolResult(result interface{}, isError bool) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": ResultText(result),
			},
		},
		"isError": isError,
	}
}

// ResultText renders a tool result as the text content of a response
func ResultText(result interface{}) string {
	if result == nil {
		return ""
	}
	if err, ok := result.(error); ok {
		return err.Error()
	}
	if jsonBytes, err := json.Marshal(result); err == nil {
		return string(jsonBytes)
	}
	return fmt.Sprintf("%v", result)
}
