package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"convokit/core"
	"convokit/services"

	"github.com/bytedance/sonic"
)

// maxErrorBody bounds how much of a failed response ends up in a StatusError.
const maxErrorBody = 512

// Client wraps the assistant backend's REST API: chat, upload, speech and the user collection.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *core.Logger
}

// NewClient creates a new API client.
func NewClient(config Config, logger *core.Logger) *Client {
	defaults := DefaultConfig()
	if config.ChatURL == "" {
		config.ChatURL = defaults.ChatURL
	}
	if config.SpeechURL == "" {
		config.SpeechURL = defaults.SpeechURL
	}
	if config.UsersURL == "" {
		config.UsersURL = defaults.UsersURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	config.ChatURL = strings.TrimRight(config.ChatURL, "/")
	config.SpeechURL = strings.TrimRight(config.SpeechURL, "/")
	config.UsersURL = strings.TrimRight(config.UsersURL, "/")

	if logger == nil {
		logger = core.GetLogger()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(map[string]any{"service": "backend"}),
	}
}

// postJSON sends body as JSON and returns the response for the caller to close.
func (c *Client) postJSON(ctx context.Context, op, url string, body any) (*http.Response, error) {
	data, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("request failed", "op", op, "status", resp.StatusCode)
		return nil, &services.StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return resp, nil
}

func decode(op string, resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &services.PayloadError{Op: op, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}
