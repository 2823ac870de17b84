// ABOUTME: Synchronous HTTP client for the agent's /api/query and /health endpoints.
// ABOUTME: Results convert to the same typed event the WebSocket path produces.

// Package query talks to the agent service's request/response API, the
// non-streaming complement to the WebSocket session.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nimesha-dev/vmarket/internal/protocol"
)

const defaultTimeout = 60 * time.Second

// Client calls the agent service's synchronous endpoints.
type Client struct {
	baseURL   string
	authToken string
	httpc     *http.Client
	logger    *slog.Logger
}

// NewClient creates a query client for the given HTTP base URL.
func NewClient(baseURL, authToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpc:     &http.Client{Timeout: defaultTimeout},
		logger:    logger,
	}
}

// Request is the JSON body sent to POST /api/query.
type Request struct {
	Query               string                  `json:"query"`
	ConversationHistory []protocol.HistoryEntry `json:"conversation_history"`
}

// Result is the response from POST /api/query. Semantically equivalent to a
// "response" frame on the WebSocket path.
type Result struct {
	Response   string                    `json:"response"`
	Vehicles   []protocol.VehicleListing `json:"vehicles"`
	Comparison protocol.Comparison       `json:"comparison"`
	Intent     string                    `json:"intent"`
}

// Event converts the result into the typed event shape so session state can
// render results from either transport.
func (r *Result) Event() *protocol.Event {
	ev := &protocol.Event{
		Type:       protocol.FrameResponse,
		Text:       r.Response,
		Vehicles:   r.Vehicles,
		Comparison: r.Comparison.Summary,
		Intent:     r.Intent,
	}
	if ev.Vehicles == nil {
		ev.Vehicles = []protocol.VehicleListing{}
	}
	if ev.Comparison == nil {
		ev.Comparison = map[string]protocol.ModelStats{}
	}
	return ev
}

// Health is the response from GET /health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Query sends one question with accompanying conversation history and
// waits for the full answer.
func (c *Client) Query(ctx context.Context, query string, history []protocol.HistoryEntry) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, protocol.ErrEmptyMessage
	}
	if history == nil {
		history = []protocol.HistoryEntry{}
	}

	body, err := json.Marshal(Request{Query: query, ConversationHistory: history})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &result, nil
}

// CheckHealth probes GET /health.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &health, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// errorFromResponse extracts a server-reported detail message when present.
func (c *Client) errorFromResponse(resp *http.Response) error {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("server error: %s", errResp.Detail)
		}
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
