// Package client is the HTTP side of a debate viewer: session creation and
// read-only server queries. Events flow over pkg/channel instead.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/controller"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
	"github.com/codeready-toolchain/deliberatorium/pkg/version"
)

// Client talks to the deliberatorium HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for the server at baseURL. timeout bounds every request.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if err is an HTTP 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// CreateSession implements controller.SessionCreator via POST /api/start_debate.
func (c *Client) CreateSession(ctx context.Context, topic string) (*controller.CreatedSession, error) {
	var resp models.StartDebateResponse
	if err := c.do(ctx, http.MethodPost, "/api/start_debate", models.StartDebateRequest{Topic: topic}, &resp); err != nil {
		return nil, err
	}
	if resp.DebateID == "" {
		return nil, errors.New("server returned no debate_id")
	}
	return &controller.CreatedSession{
		DebateID: resp.DebateID,
		Topic:    resp.Topic,
		Agents:   resp.Agents,
	}, nil
}

// Agents returns the roster new debates are created with.
func (c *Client) Agents(ctx context.Context) ([]models.Agent, error) {
	var resp models.AgentsResponse
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// Debate returns the server-side snapshot of a debate.
func (c *Client) Debate(ctx context.Context, id string) (*models.DebateSnapshot, error) {
	var resp models.DebateSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/debates/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.Full())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts echo's {"message": ...} error body, falling back to raw text.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
