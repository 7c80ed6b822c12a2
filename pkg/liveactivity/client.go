package liveactivity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RelayError is a non-success response from the dispatch relay.
type RelayError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *RelayError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("relay: %s: %s", e.Message, e.Details)
	}
	return fmt.Sprintf("relay: %s", e.Message)
}

// RelayClientOption configures a RelayClient.
type RelayClientOption func(*RelayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) RelayClientOption {
	return func(c *RelayClient) {
		c.httpClient = client
	}
}

// WithSandbox routes notifications through the sandbox push environment.
func WithSandbox(sandbox bool) RelayClientOption {
	return func(c *RelayClient) {
		c.sandbox = sandbox
	}
}

// RelayClient calls the dispatch relay's HTTP API. It implements Relay.
type RelayClient struct {
	baseURL    string
	sandbox    bool
	httpClient *http.Client
}

// NewRelayClient builds a client for the relay at baseURL.
func NewRelayClient(baseURL string, opts ...RelayClientOption) *RelayClient {
	c := &RelayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type startPayload struct {
	Title       string `json:"title"`
	StartTimeMs int64  `json:"startTimeMs"`
	EndTimeMs   int64  `json:"endTimeMs"`
}

type startRequest struct {
	Token     string       `json:"token"`
	Payload   startPayload `json:"payload"`
	IsSandbox bool         `json:"isSandbox"`
}

type updateRequest struct {
	Token     string       `json:"token"`
	Payload   ContentState `json:"payload"`
	IsSandbox bool         `json:"isSandbox"`
}

type endRequest struct {
	Token     string `json:"token"`
	IsSandbox bool   `json:"isSandbox"`
}

// Start asks the relay to create a new live activity.
func (c *RelayClient) Start(ctx context.Context, token string, content ContentState) error {
	return c.post(ctx, "/start", startRequest{
		Token: token,
		Payload: startPayload{
			Title:       content.Title,
			StartTimeMs: content.StartTimeMs,
			EndTimeMs:   content.EndTimeMs,
		},
		IsSandbox: c.sandbox,
	})
}

// Update asks the relay to refresh the running activity's content.
func (c *RelayClient) Update(ctx context.Context, token string, content ContentState) error {
	return c.post(ctx, "/update", updateRequest{
		Token:     token,
		Payload:   content,
		IsSandbox: c.sandbox,
	})
}

// End asks the relay to tear down the running activity.
func (c *RelayClient) End(ctx context.Context, token string) error {
	return c.post(ctx, "/end", endRequest{Token: token, IsSandbox: c.sandbox})
}

func (c *RelayClient) post(ctx context.Context, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var failure struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
		failure.Error = http.StatusText(resp.StatusCode)
	}
	return &RelayError{
		StatusCode: resp.StatusCode,
		Message:    failure.Error,
		Details:    failure.Details,
	}
}
