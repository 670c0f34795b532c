package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the HTTP client for the bridge's local API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new MCP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// MatchResult is the dry-run verdict for a message
type MatchResult struct {
	Matched bool   `json:"matched"`
	Label   string `json:"label"`
}

// SinkOutcome is one delivery attempt of a forward
type SinkOutcome struct {
	Sink   string `json:"sink"`
	Target string `json:"target,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// ForwardRecord is a forward history entry
type ForwardRecord struct {
	ID          string        `json:"id"`
	MessageID   string        `json:"message_id"`
	SourceID    string        `json:"source_id"`
	SourceLabel string        `json:"source_label"`
	Text        string        `json:"text"`
	MediaCount  int           `json:"media_count"`
	Outcomes    []SinkOutcome `json:"outcomes"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ResolveResult lists the candidates probed for a media path
type ResolveResult struct {
	Variants []string `json:"variants"`
	Resolved string   `json:"resolved"`
}

// ============ Forwarding ============

// TestMatch asks whether a message from sourceID with text would be forwarded
func (c *Client) TestMatch(sourceID, text string) (*MatchResult, error) {
	var result MatchResult
	body := map[string]string{"source_id": sourceID, "text": text}
	if err := c.post("/api/match", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentForwards gets the newest forward records
func (c *Client) RecentForwards(limit int) ([]ForwardRecord, error) {
	var result struct {
		Records []ForwardRecord `json:"records"`
	}
	if err := c.get(fmt.Sprintf("/api/history?limit=%d", limit), &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}

// SettingsSummary gets the redacted settings
func (c *Client) SettingsSummary() (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := c.get("/api/settings", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveImage runs the image resolver on path
func (c *Client) ResolveImage(path string) (*ResolveResult, error) {
	var result ResolveResult
	if err := c.post("/api/resolve", map[string]string{"path": path}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health reports whether the bridge API is reachable
func (c *Client) Health() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// ============ HTTP Helpers ============

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) post(path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("HTTP POST failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
