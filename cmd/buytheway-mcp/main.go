package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	btwmcp "github.com/buytheway/buytheway-bridge/internal/mcp"
	"github.com/buytheway/buytheway-bridge/mcpserver"
)

// This MCP server speaks stdio to the agent and relays every tool call
// to the bridge's local HTTP API.

const defaultBridgeAPIURL = "http://127.0.0.1:9877"

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "--list-tools" {
		fmt.Println(mcpserver.ToolsJSON())
		return
	}

	apiURL := os.Getenv("BRIDGE_API_URL")
	if apiURL == "" {
		apiURL = defaultBridgeAPIURL
	}

	// stdout carries the protocol; diagnostics go to stderr
	log.SetOutput(os.Stderr)

	client := btwmcp.NewClient(apiURL)
	if err := client.Health(); err != nil {
		log.Printf("Warning: bridge API at %s not reachable: %v", apiURL, err)
	}

	srv := mcpserver.NewServer(btwmcp.NewHandler(client), "v1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
