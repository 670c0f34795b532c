// Package mcpserver exposes the bridge's inspection tools over MCP stdio.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	btwmcp "github.com/buytheway/buytheway-bridge/internal/mcp"
)

// Server provides MCP tools backed by the bridge HTTP API
type Server struct {
	server  *mcp.Server
	handler *btwmcp.Handler
}

// TestMatchInput is the input for btw_test_match
type TestMatchInput struct {
	SourceID string `json:"source_id" jsonschema:"numeric id of the group or contact the message comes from"`
	Text     string `json:"text,omitempty" jsonschema:"message text to test"`
}

// RecentForwardsInput is the input for btw_recent_forwards
type RecentForwardsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of records to return"`
}

// SettingsSummaryInput is the (empty) input for btw_settings_summary
type SettingsSummaryInput struct{}

// ResolveImageInput is the input for btw_resolve_image
type ResolveImageInput struct {
	Path string `json:"path" jsonschema:"image path as reported by the chat client"`
}

// NewServer creates a new MCP server calling the bridge API through handler
func NewServer(handler *btwmcp.Handler, version string) *Server {
	if version == "" {
		version = "v1.0.0"
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "buytheway-tools",
			Version: version,
		}, nil),
		handler: handler,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        btwmcp.ToolTestMatch,
		Description: btwmcp.Describe(btwmcp.ToolTestMatch),
	}, func(ctx context.Context, req *mcp.CallToolRequest, input TestMatchInput) (*mcp.CallToolResult, any, error) {
		return s.call(btwmcp.ToolTestMatch, input), nil, nil
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        btwmcp.ToolRecentForwards,
		Description: btwmcp.Describe(btwmcp.ToolRecentForwards),
	}, func(ctx context.Context, req *mcp.CallToolRequest, input RecentForwardsInput) (*mcp.CallToolResult, any, error) {
		return s.call(btwmcp.ToolRecentForwards, input), nil, nil
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        btwmcp.ToolSettingsSummary,
		Description: btwmcp.Describe(btwmcp.ToolSettingsSummary),
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SettingsSummaryInput) (*mcp.CallToolResult, any, error) {
		return s.call(btwmcp.ToolSettingsSummary, input), nil, nil
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        btwmcp.ToolResolveImage,
		Description: btwmcp.Describe(btwmcp.ToolResolveImage),
	}, func(ctx context.Context, req *mcp.CallToolRequest, input ResolveImageInput) (*mcp.CallToolResult, any, error) {
		return s.call(btwmcp.ToolResolveImage, input), nil, nil
	})
}

// call runs a tool through the handler. Tool failures are reported to the
// caller as error results rather than protocol errors.
func (s *Server) call(name string, input any) *mcp.CallToolResult {
	result, err := s.handler.HandleToolCall(name, btwmcp.ToArgs(input))
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: btwmcp.ResultText(result)}},
	}
}

// ToolsJSON returns the tool definitions as indented JSON
func ToolsJSON() string {
	jsonBytes, _ := json.MarshalIndent(btwmcp.GetToolDefinitions(), "", "  ")
	return string(jsonBytes)
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *Server) GetServer() *mcp.Server {
	return s.server
}
