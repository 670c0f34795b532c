package mcp

// ToolDefinition represents an MCP tool definition
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available MCP tool definitions
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolTestMatch,
			Description: "Check whether a message from a chat would be forwarded under the current watch list and keywords. Does not send anything.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source_id": map[string]interface{}{
						"type":        "string",
						"description": "Numeric id of the group or contact the message comes from",
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Message text to test",
					},
				},
				"required": []string{"source_id"},
			},
		},
		{
			Name:        ToolRecentForwards,
			Description: "List the most recent forwarded messages with per-destination delivery results.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of records to return (default 20, max 100)",
					},
				},
			},
		},
		{
			Name:        ToolSettingsSummary,
			Description: "Show the current forwarding settings. Passwords are never included.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        ToolResolveImage,
			Description: "Show the candidate on-disk locations for a reported image path and which one is readable now.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Image path as reported by the chat client",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// Describe returns the description of the named tool
func Describe(name string) string {
	for _, def := range GetToolDefinitions() {
		if def.Name == name {
			return def.Description
		}
	}
	return ""
}
