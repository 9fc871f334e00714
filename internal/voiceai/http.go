package voiceai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to a voice-AI provider over JSON HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.post(ctx, "/v1/sessions", req, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("voiceai create session: empty session id")
	}
	return out.SessionID, nil
}

func (c *HTTPClient) SendUtterance(ctx context.Context, req UtteranceRequest) (Reply, error) {
	var out Reply
	path := "/v1/sessions/" + req.SessionID + "/utterances"
	if err := c.post(ctx, path, req, &out); err != nil {
		return Reply{}, err
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are worth one retry.
		return &TransientError{Op: "post " + path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &TransientError{Op: "post " + path, Err: fmt.Errorf("status %d: %s", res.StatusCode, string(body))}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("voiceai http status %d: %s", res.StatusCode, string(body))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
