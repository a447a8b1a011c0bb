// Package assist is the HTTP client for the remote task-suggestion backend.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an assist backend API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// retryDelays are the waits before each retry attempt. The request is
	// attempted len(retryDelays)+1 times in total.
	retryDelays []time.Duration
}

// NewClient creates a new assist client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryDelays: []time.Duration{time.Second, 2 * time.Second},
	}
}

// IsConfigured returns true if the client has a backend URL.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// Suggest asks the backend for task suggestions. Transient failures are
// retried with bounded backoff; the waits honor ctx so an abandoned caller
// does not keep a retry pending.
func (c *Client) Suggest(ctx context.Context, req SuggestionRequest) ([]Suggestion, error) {
	var lastErr error
	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelays[attempt-1]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := c.doRequest(ctx, http.MethodPost, "/v1/suggestions", req)
		if err != nil {
			lastErr = err
			continue
		}

		var resp suggestionResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return resp.Suggestions, nil
	}
	return nil, fmt.Errorf("suggest: %w", lastErr)
}

// doRequest performs an HTTP request with auth.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
