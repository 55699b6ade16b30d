package agentbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errx "github.com/startupx/agents/internal/core/error"
)

// Reply is an agent's raw HTTP answer, relayed as-is by the dashboard.
type Reply struct {
	StatusCode int
	Body       json.RawMessage
}

// Client posts messages to agent webhooks.
type Client struct {
	http   *http.Client
	apiKey string
}

func NewClient(timeout time.Duration, apiKey string) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		apiKey: apiKey,
	}
}

// SendSync posts msg to baseURL/webhook/sync and returns the agent's reply.
// Transport failures come back as an errx.AppError with status 502.
func (c *Client) SendSync(ctx context.Context, baseURL string, msg Message) (*Reply, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/webhook/sync"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errx.New(err, http.StatusBadGateway, errx.AgentUnavailableMessage)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errx.New(err, http.StatusBadGateway, errx.AgentUnavailableMessage)
	}
	if !json.Valid(body) {
		return nil, errx.New(fmt.Errorf("non-JSON reply with status %d", resp.StatusCode), http.StatusBadGateway, errx.AgentUnavailableMessage)
	}
	return &Reply{StatusCode: resp.StatusCode, Body: body}, nil
}
